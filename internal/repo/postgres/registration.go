package postgres

import (
	"context"

	"github.com/bsebcampus/campus-api/internal/domain/job"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepo commits a new user row and its verification email job
// in one transaction, so a crash between the two cannot leave an account
// nobody can ever verify.
type RegistrationRepo struct {
	pool  *pgxpool.Pool
	users *UsersRepo
	jobs  *JobsRepo
}

func NewRegistrationRepo(pool *pgxpool.Pool, users *UsersRepo, jobs *JobsRepo) *RegistrationRepo {
	return &RegistrationRepo{pool: pool, users: users, jobs: jobs}
}

func (r *RegistrationRepo) Register(ctx context.Context, u user.User, jobReq job.CreateRequest) (created user.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return user.User{}, err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	created, err = r.users.CreateTx(ctx, tx, u)

	if err != nil {
		return user.User{}, err
	}

	_, err = r.jobs.CreateTx(ctx, tx, jobReq)

	if err != nil {
		return user.User{}, err
	}

	err = tx.Commit(ctx)

	if err != nil {
		return user.User{}, err
	}

	return created, nil
}
