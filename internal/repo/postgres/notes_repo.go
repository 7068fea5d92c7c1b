package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsebcampus/campus-api/internal/domain/note"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/bsebcampus/campus-api/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const noteColumns = `id, title, subject, chapter, topic, description, content, type, tags, file_url, is_handwritten, uploaded_by, views, likes, created_at, updated_at`

type NotesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotesRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotesRepo {
	return &NotesRepo{pool: pool, prom: prom}
}

func (r *NotesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanNote(row pgx.Row) (note.Note, error) {
	var n note.Note

	err := row.Scan(
		&n.ID, &n.Title, &n.Subject, &n.Chapter, &n.Topic, &n.Description,
		&n.Content, &n.Type, &n.Tags, &n.FileURL, &n.IsHandwritten,
		&n.UploadedBy, &n.Views, &n.Likes, &n.CreatedAt, &n.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return note.Note{}, note.ErrNotFound
		}
		return note.Note{}, err
	}

	return n, nil
}

func (r *NotesRepo) Create(ctx context.Context, n note.Note) (note.Note, error) {
	err := r.observe("notes.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO notes (`+noteColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			n.ID, n.Title, n.Subject, n.Chapter, n.Topic, n.Description,
			n.Content, n.Type, n.Tags, n.FileURL, n.IsHandwritten,
			n.UploadedBy, n.Views, n.Likes, n.CreatedAt, n.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return note.Note{}, err
	}

	return n, nil
}

func (r *NotesRepo) List(ctx context.Context, filter note.ListNotesFilter) ([]note.Note, int, error) {
	baseQuery := `SELECT ` + noteColumns + `, COUNT(*) OVER() AS total FROM notes`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Subject != nil {
		conds = append(conds, fmt.Sprintf("subject = $%d", argsPosition))
		args = append(args, *filter.Subject)
		argsPosition++
	}

	if filter.Chapter != nil {
		conds = append(conds, fmt.Sprintf("chapter = $%d", argsPosition))
		args = append(args, *filter.Chapter)
		argsPosition++
	}

	if filter.Type != nil {
		conds = append(conds, fmt.Sprintf("type = $%d", argsPosition))
		args = append(args, *filter.Type)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var rows pgx.Rows
	err := r.observe("notes.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]note.Note, 0, filter.Limit)
	total := 0

	for rows.Next() {
		var n note.Note
		var t int

		err = rows.Scan(
			&n.ID, &n.Title, &n.Subject, &n.Chapter, &n.Topic, &n.Description,
			&n.Content, &n.Type, &n.Tags, &n.FileURL, &n.IsHandwritten,
			&n.UploadedBy, &n.Views, &n.Likes, &n.CreatedAt, &n.UpdatedAt, &t,
		)

		if err != nil {
			return nil, 0, err
		}

		total = t
		output = append(output, n)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// ListCursor pages by (created_at, id) descending, fetching one row past the
// limit to learn whether more remain.
func (r *NotesRepo) ListCursor(
	ctx context.Context,
	filter note.ListNotesFilter,
	beforeCreatedAt time.Time,
	beforeID string,
) (items []note.Note, nextCursor *string, hasMore bool, err error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Subject != nil {
		conds = append(conds, fmt.Sprintf("subject = $%d", argsPosition))
		args = append(args, *filter.Subject)
		argsPosition++
	}

	if filter.Chapter != nil {
		conds = append(conds, fmt.Sprintf("chapter = $%d", argsPosition))
		args = append(args, *filter.Chapter)
		argsPosition++
	}

	if filter.Type != nil {
		conds = append(conds, fmt.Sprintf("type = $%d", argsPosition))
		args = append(args, *filter.Type)
		argsPosition++
	}

	conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argsPosition, argsPosition+1))
	args = append(args, beforeCreatedAt, beforeID)
	argsPosition += 2

	query := `SELECT ` + noteColumns + ` FROM notes WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argsPosition)

	limitPlusOne := filter.Limit + 1
	args = append(args, limitPlusOne)

	var rows pgx.Rows
	err = r.observe("notes.list_cursor", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]note.Note, 0, filter.Limit)

	for rows.Next() {
		var n note.Note
		scanErr := rows.Scan(
			&n.ID, &n.Title, &n.Subject, &n.Chapter, &n.Topic, &n.Description,
			&n.Content, &n.Type, &n.Tags, &n.FileURL, &n.IsHandwritten,
			&n.UploadedBy, &n.Views, &n.Likes, &n.CreatedAt, &n.UpdatedAt,
		)
		if scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > filter.Limit {
		hasMore = true
		out = out[:filter.Limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeNoteCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

// GetByID fetches a note and counts the view in one round trip.
func (r *NotesRepo) GetByID(ctx context.Context, id string) (n note.Note, err error) {
	err = r.observe("notes.get_by_id", func() error {
		n, err = scanNote(r.pool.QueryRow(ctx,
			`UPDATE notes SET views = views + 1 WHERE id = $1 RETURNING `+noteColumns, id))
		return err
	})
	return
}

// Peek fetches a note without touching the view counter. Internal checks
// use this so they don't inflate view stats.
func (r *NotesRepo) Peek(ctx context.Context, id string) (n note.Note, err error) {
	err = r.observe("notes.peek", func() error {
		n, err = scanNote(r.pool.QueryRow(ctx,
			`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
		return err
	})
	return
}

func (r *NotesRepo) Like(ctx context.Context, id string) (n note.Note, err error) {
	err = r.observe("notes.like", func() error {
		n, err = scanNote(r.pool.QueryRow(ctx,
			`UPDATE notes SET likes = likes + 1, updated_at = NOW() WHERE id = $1 RETURNING `+noteColumns, id))
		return err
	})
	return
}

func (r *NotesRepo) Update(ctx context.Context, id string, req note.UpdateNoteRequest) (n note.Note, err error) {
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	err = r.observe("notes.update", func() error {
		n, err = scanNote(r.pool.QueryRow(ctx,
			`UPDATE notes
				SET title = $2,
					subject = $3,
					chapter = $4,
					topic = $5,
					description = $6,
					content = $7,
					tags = $8,
					updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+noteColumns,
			id, req.Title, req.Subject, req.Chapter, req.Topic, req.Description, req.Content, tags,
		))
		return err
	})
	return
}

func (r *NotesRepo) SetFileURL(ctx context.Context, id, fileURL string) (n note.Note, err error) {
	err = r.observe("notes.set_file_url", func() error {
		n, err = scanNote(r.pool.QueryRow(ctx,
			`UPDATE notes SET file_url = $2, updated_at = NOW() WHERE id = $1 RETURNING `+noteColumns,
			id, fileURL,
		))
		return err
	})
	return
}

func (r *NotesRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("notes.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return note.ErrNotFound
	}

	return nil
}
