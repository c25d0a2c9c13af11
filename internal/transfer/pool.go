// Package transfer moves media bytes in and out of the local working
// directory. Downloads pull source files and subtitles over HTTP, uploads
// push the finished bundle to S3. Both run through a bounded worker pool
// with per-item retries.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a single unit of transfer work. The attempt number starts at 1.
type Task struct {
	// Name identifies the task for logging.
	Name string
	// Run performs the transfer.
	Run func(ctx context.Context) error
}

// Pool executes transfer tasks with bounded concurrency. Each task is retried
// up to MaxRetry additional times before the pool gives up on it. The first
// task that exhausts its retries fails the whole batch and cancels the rest.
type Pool struct {
	concurrency int
	maxRetry    int
	logger      *slog.Logger
}

// NewPool creates a pool with the given concurrency bound and per-task retry
// budget.
func NewPool(concurrency, maxRetry int, logger *slog.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		concurrency: concurrency,
		maxRetry:    maxRetry,
		logger:      logger,
	}
}

// Run executes all tasks and blocks until they finish or one of them fails
// permanently. On failure the remaining tasks are cancelled and the first
// permanent error is returned.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan Task)
	errCh := make(chan error, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if err := p.runWithRetry(ctx, task); err != nil {
					errCh <- err
					cancel()
				}
			}
		}()
	}

	for _, task := range tasks {
		select {
		case taskCh <- task:
		case <-ctx.Done():
		}
	}
	close(taskCh)

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (p *Pool) runWithRetry(ctx context.Context, task Task) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetry+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil
		}

		err := task.Run(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		p.logger.Warn("transfer task failed",
			slog.String("task", task.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.maxRetry+1),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("task %s: %w", task.Name, lastErr)
}
