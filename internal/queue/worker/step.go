package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsebcampus/campus-api/internal/domain/job"
)

// processOne claims a single job and, when one exists, executes it on its
// own goroutine. Returns whether a job was claimed.
func (w *Worker) processOne(ctx context.Context, wg *sync.WaitGroup, sem chan struct{}) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		<-sem
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	wg.Add(1)

	go func() {
		defer wg.Done()
		defer func() { <-sem }()

		w.runJob(ctx, j)
	}()

	return true, nil
}

func (w *Worker) runJob(ctx context.Context, j job.Job) {
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err := w.executor.Execute(ctx, j)

	// the status write must land even when the poll context was cancelled
	// mid-drain, or the job stays processing until the stale sweep
	doneCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	result := "done"

	if err != nil {
		result = w.handleFailure(doneCtx, j, err)
	} else if markErr := w.repo.MarkDone(doneCtx, j.ID); markErr != nil {
		w.log.Error("mark done failed", "job", j.ID, "err", markErr)
		result = "retry"
	}

	if w.prom != nil {
		w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
		w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
	}

	w.log.Info("job finished", "job", j.ID, "type", j.Type, "result", result, "attempt", j.Attempts)
}

// handleFailure either reschedules with backoff or gives up once the
// attempt budget is spent. Returns the result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	if j.Attempts >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed failed", "job", j.ID, "err", err)
		}
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Retry(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("retry schedule failed", "job", j.ID, "err", err)
	}

	return "retry"
}
