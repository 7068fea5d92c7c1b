package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bsebcampus/campus-api/internal/domain/job"
	"github.com/bsebcampus/campus-api/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Retry(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration

	// LockTTL bounds how long a processing claim is trusted. Claims older
	// than this belong to a dead worker and are swept back to pending.
	LockTTL time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	executor Executor
	log      *slog.Logger
	prom     *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

// Executor runs one claimed job to completion.
type Executor interface {
	Execute(ctx context.Context, j job.Job) error
}

func New(cfg Config, repo JobsRepository, executor Executor, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		executor: executor,
		log:      log,
		prom:     prom,
	}
}

// Run polls for claimable jobs until the context is cancelled, then drains
// in-flight work within the shutdown grace period.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	sem := make(chan struct{}, w.cfg.Concurrency)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var lastSweep time.Time

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case <-ticker.C:
			if time.Since(lastSweep) >= w.cfg.LockTTL/2 {
				lastSweep = time.Now()
				w.sweepStale(ctx)
			}

			// drain the backlog before sleeping again
			for {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					break loop
				}

				claimed, err := w.processOne(ctx, &wg, sem)

				if err != nil {
					w.log.Error("job claim failed", "err", err)
				}

				if !claimed {
					break
				}
			}
		}
	}

	w.log.Info("worker draining", "grace", w.cfg.ShutdownGrace)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker drain timed out")
	}

	return nil
}

// sweepStale returns abandoned processing claims to the pending queue.
func (w *Worker) sweepStale(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := w.repo.RequeueStale(sctx, w.cfg.LockTTL)

	if err != nil {
		w.log.Error("stale job sweep failed", "err", err)
		return
	}

	if n > 0 {
		w.log.Info("requeued stale jobs", "count", n)
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
