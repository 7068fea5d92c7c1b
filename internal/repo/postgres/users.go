package postgres

import (
	"context"
	"errors"

	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, name, email, phone_number, password_hash, role, profile_picture, grade, stream, bio, subjects, verified, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// conflictFromConstraint maps a unique violation back to the field that
// caused it. The store constraints are the source of truth for uniqueness;
// the registration pre-checks only exist to fail fast.
func conflictFromConstraint(err error) error {
	var pgErr *pgconn.PgError

	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_email_key":
		return user.ErrEmailTaken
	case "users_username_key":
		return user.ErrUsernameTaken
	case "users_phone_number_key":
		return user.ErrPhoneTaken
	default:
		return err
	}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			u.ID, u.Username, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.Role, u.ProfilePicture, u.Grade, u.Stream, u.Bio, u.Subjects, u.Verified, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return user.User{}, conflictFromConstraint(err)
	}

	return u, nil
}

// CreateTx inserts inside an existing transaction so the caller can enqueue
// follow-up work atomically with the user row.
func (r *UsersRepo) CreateTx(ctx context.Context, tx pgx.Tx, u user.User) (user.User, error) {
	err := r.observe("users.create_tx", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			u.ID, u.Username, u.Name, u.Email, u.PhoneNumber, u.PasswordHash, u.Role, u.ProfilePicture, u.Grade, u.Stream, u.Bio, u.Subjects, u.Verified, u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return user.User{}, conflictFromConstraint(err)
	}

	return u, nil
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func (r *UsersRepo) scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.Role,
		&u.ProfilePicture,
		&u.Grade,
		&u.Stream,
		&u.Bio,
		&u.Subjects,
		&u.Verified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		u, err = r.scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (u user.User, err error) {
	err = r.observe("users.get_by_username", func() error {
		u, err = r.scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return err
	})
	return
}

func (r *UsersRepo) GetByPhone(ctx context.Context, phone string) (u user.User, err error) {
	err = r.observe("users.get_by_phone", func() error {
		u, err = r.scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone))
		return err
	})
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		u, err = r.scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return
}

// MarkVerified flips the verified flag. Only the verification collaborator
// calls this; repeated calls are harmless.
func (r *UsersRepo) MarkVerified(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.mark_verified", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

// UpdatePassword stores a new hash. Hashing happens in the workflow before
// this call; the store never sees plaintext.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	var tag pgconn.CommandTag

	err := r.observe("users.update_password", func() error {
		var e error
		tag, e = r.pool.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
