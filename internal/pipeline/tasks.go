package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// task is one unit of encode-stage work.
type task struct {
	name string
	run  func(ctx context.Context) error
	// noRetry marks tasks that handle their own failure policy.
	noRetry bool
}

// fanOut runs all tasks concurrently and fails fast: the first task to
// exhaust its retries cancels the rest. Retryable tasks get the queue's
// retry budget.
func (r *Runner) fanOut(ctx context.Context, tasks []task, logger *slog.Logger) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(tasks))
	var wg sync.WaitGroup

	for _, t := range tasks {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.runTask(ctx, t, logger); err != nil {
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// runTask executes one task with the per-task retry budget.
func (r *Runner) runTask(ctx context.Context, t task, logger *slog.Logger) error {
	attempts := 1
	if !t.noRetry {
		attempts = r.cfg.Queue.MaxRetry + 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		err := t.run(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		logger.Warn("encode task failed",
			slog.String("task", t.name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)
	}
	return lastErr
}
