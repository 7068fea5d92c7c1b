package db

import (
	"context"
	"errors"
	"time"

	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser seeds the configured admin account on startup. The seeded
// account is pre-verified so the operator can log in without the email loop.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:             uuid.NewString(),
		Username:       cfg.AdminUsername,
		Name:           cfg.AdminName,
		Email:          cfg.AdminEmail,
		PhoneNumber:    cfg.AdminPhone,
		PasswordHash:   hash,
		Role:           user.RoleAdmin,
		ProfilePicture: user.DefaultProfilePicture,
		Bio:            user.DefaultBio,
		Subjects:       []string{},
		Verified:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, username, name, email, phone_number, password_hash, role, profile_picture, grade, stream, bio, subjects, verified, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`,
		u.ID, u.Username, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.Role, u.ProfilePicture, u.Grade, u.Stream, u.Bio, u.Subjects, u.Verified, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
