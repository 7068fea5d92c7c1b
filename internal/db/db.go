package db

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Lazy defers pool creation until the first caller needs it and guarantees
// that concurrent first callers share one connection attempt instead of
// racing to open duplicates. The handle is an injected dependency, not a
// package global.
type Lazy struct {
	once    sync.Once
	connect func(ctx context.Context) (*pgxpool.Pool, error)

	pool *pgxpool.Pool
	err  error
}

func NewLazy(dbURL string) *Lazy {
	return &Lazy{
		connect: func(ctx context.Context) (*pgxpool.Pool, error) {
			return NewPool(ctx, dbURL)
		},
	}
}

// NewLazyWith accepts a custom connect function.
func NewLazyWith(connect func(ctx context.Context) (*pgxpool.Pool, error)) *Lazy {
	return &Lazy{connect: connect}
}

// Get returns the shared pool, establishing it exactly once. A failed
// attempt is sticky: callers see the same error rather than retrying a
// half-initialized handle.
func (l *Lazy) Get(ctx context.Context) (*pgxpool.Pool, error) {
	l.once.Do(func() {
		l.pool, l.err = l.connect(ctx)
	})

	return l.pool, l.err
}

// Close releases the pool if it was ever established.
func (l *Lazy) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
