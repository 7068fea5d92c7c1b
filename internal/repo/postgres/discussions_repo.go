package postgres

import (
	"context"
	"errors"

	"github.com/bsebcampus/campus-api/internal/domain/discussion"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const discussionColumns = `id, content, subject, created_by, parent_id, likes, dislikes, comments, created_at, updated_at`

type DiscussionsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDiscussionsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DiscussionsRepo {
	return &DiscussionsRepo{pool: pool, prom: prom}
}

func (r *DiscussionsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanDiscussion(row pgx.Row) (discussion.Discussion, error) {
	var d discussion.Discussion

	err := row.Scan(
		&d.ID, &d.Content, &d.Subject, &d.CreatedBy, &d.ParentID,
		&d.Likes, &d.Dislikes, &d.Comments, &d.CreatedAt, &d.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return discussion.Discussion{}, discussion.ErrNotFound
		}
		return discussion.Discussion{}, err
	}

	return d, nil
}

// Create inserts a post. Replies lock the parent row and bump its comment
// counter in the same transaction, so counter and reply never drift.
func (r *DiscussionsRepo) Create(ctx context.Context, d discussion.Discussion) (created discussion.Discussion, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if d.ParentID != nil {
		var dummy string

		err = r.observe("discussions.create.parent_lock", func() error {
			return tx.QueryRow(ctx,
				`SELECT id FROM discussions WHERE id = $1 FOR UPDATE`, *d.ParentID).Scan(&dummy)
		})

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = discussion.ErrParentNotFound
			}
			return
		}

		err = r.observe("discussions.create.parent_bump", func() error {
			_, e := tx.Exec(ctx,
				`UPDATE discussions SET comments = comments + 1, updated_at = NOW() WHERE id = $1`, *d.ParentID)
			return e
		})

		if err != nil {
			return
		}
	}

	err = r.observe("discussions.create.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO discussions (`+discussionColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			d.ID, d.Content, d.Subject, d.CreatedBy, d.ParentID,
			d.Likes, d.Dislikes, d.Comments, d.CreatedAt, d.UpdatedAt,
		)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			err = discussion.ErrParentNotFound
		}
		return
	}

	err = tx.Commit(ctx)

	if err != nil {
		return
	}

	created = d
	return
}

func (r *DiscussionsRepo) GetByID(ctx context.Context, id string) (d discussion.Discussion, err error) {
	err = r.observe("discussions.get_by_id", func() error {
		d, err = scanDiscussion(r.pool.QueryRow(ctx,
			`SELECT `+discussionColumns+` FROM discussions WHERE id = $1`, id))
		return err
	})
	return
}

func (r *DiscussionsRepo) ListBySubject(ctx context.Context, subject string, limit, offset int) (out []discussion.Discussion, total int, err error) {
	var rows pgx.Rows

	err = r.observe("discussions.list_by_subject", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+discussionColumns+`, COUNT(*) OVER() AS total
			 FROM discussions
			 WHERE subject = $1 AND parent_id IS NULL
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2 OFFSET $3`,
			subject, limit, offset,
		)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]discussion.Discussion, 0, limit)

	for rows.Next() {
		var d discussion.Discussion
		var t int

		e := rows.Scan(
			&d.ID, &d.Content, &d.Subject, &d.CreatedBy, &d.ParentID,
			&d.Likes, &d.Dislikes, &d.Comments, &d.CreatedAt, &d.UpdatedAt, &t,
		)

		if e != nil {
			err = e
			return
		}

		total = t
		out = append(out, d)
	}

	err = rows.Err()
	return
}

func (r *DiscussionsRepo) ListReplies(ctx context.Context, parentID string) (out []discussion.Discussion, err error) {
	var rows pgx.Rows

	err = r.observe("discussions.list_replies", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT `+discussionColumns+`
			 FROM discussions
			 WHERE parent_id = $1
			 ORDER BY created_at ASC, id ASC`,
			parentID,
		)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]discussion.Discussion, 0)

	for rows.Next() {
		var d discussion.Discussion

		e := rows.Scan(
			&d.ID, &d.Content, &d.Subject, &d.CreatedBy, &d.ParentID,
			&d.Likes, &d.Dislikes, &d.Comments, &d.CreatedAt, &d.UpdatedAt,
		)

		if e != nil {
			err = e
			return
		}

		out = append(out, d)
	}

	err = rows.Err()

	if err != nil {
		return
	}

	// distinguish "no replies" from "no such thread"
	if len(out) == 0 {
		var dummy string

		err = r.observe("discussions.list_replies.check_parent", func() error {
			return r.pool.QueryRow(ctx, `SELECT id FROM discussions WHERE id = $1`, parentID).Scan(&dummy)
		})

		if errors.Is(err, pgx.ErrNoRows) {
			err = discussion.ErrNotFound
			return
		}
	}

	return
}

func (r *DiscussionsRepo) Like(ctx context.Context, id string) (d discussion.Discussion, err error) {
	err = r.observe("discussions.like", func() error {
		d, err = scanDiscussion(r.pool.QueryRow(ctx,
			`UPDATE discussions SET likes = likes + 1, updated_at = NOW() WHERE id = $1 RETURNING `+discussionColumns, id))
		return err
	})
	return
}

func (r *DiscussionsRepo) Dislike(ctx context.Context, id string) (d discussion.Discussion, err error) {
	err = r.observe("discussions.dislike", func() error {
		d, err = scanDiscussion(r.pool.QueryRow(ctx,
			`UPDATE discussions SET dislikes = dislikes + 1, updated_at = NOW() WHERE id = $1 RETURNING `+discussionColumns, id))
		return err
	})
	return
}

// Delete removes a post and, for replies, releases its slot in the parent's
// comment counter.
func (r *DiscussionsRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	var parentID *string

	err = r.observe("discussions.delete.load", func() error {
		return tx.QueryRow(ctx,
			`SELECT parent_id FROM discussions WHERE id = $1 FOR UPDATE`, id).Scan(&parentID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = discussion.ErrNotFound
		}
		return
	}

	// a deleted thread takes its replies with it
	err = r.observe("discussions.delete.replies", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM discussions WHERE parent_id = $1`, id)
		return e
	})

	if err != nil {
		return
	}

	err = r.observe("discussions.delete.exec", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM discussions WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return
	}

	if parentID != nil {
		err = r.observe("discussions.delete.parent_drop", func() error {
			_, e := tx.Exec(ctx,
				`UPDATE discussions SET comments = GREATEST(comments - 1, 0), updated_at = NOW() WHERE id = $1`, *parentID)
			return e
		})

		if err != nil {
			return
		}
	}

	return tx.Commit(ctx)
}
