// Package queue owns the job lifecycle: a persisted pending/processing/done/
// failed state machine, a bounded worker pool, and the executors that run
// each conversion either in a child process or inline.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/observability"
	"github.com/vodforge/vodforge/internal/repository"
)

// submissionBuffer is the number of accepted-but-unstarted jobs held in
// memory. Rows are already persisted, so a full buffer only delays pickup.
const submissionBuffer = 1024

// submission pairs a persisted job row with its ephemeral request.
type submission struct {
	job *models.Job
	req *models.ConversionRequest
}

// Queue accepts conversion requests, persists their state, and dispatches
// them to a fixed-size worker pool.
type Queue struct {
	cfg      *config.Config
	repo     repository.JobRepository
	exec     Executor
	notifier *Notifier
	reporter *observability.Reporter
	logger   *slog.Logger

	jobs   chan submission
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a queue. Start must be called before submissions are
// processed.
func New(cfg *config.Config, repo repository.JobRepository, exec Executor, notifier *Notifier, reporter *observability.Reporter, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		cfg:      cfg,
		repo:     repo,
		exec:     exec,
		notifier: notifier,
		reporter: reporter,
		logger:   logger,
		jobs:     make(chan submission, submissionBuffer),
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)

	for i := 0; i < q.cfg.Queue.Concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.logger.Info("job queue started",
		slog.Int("concurrency", q.cfg.Queue.Concurrency),
		slog.String("isolation", q.cfg.Queue.Isolation),
	)
}

// Stop cancels in-flight work and waits for the workers to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("job queue stopped")
}

// Submit persists a new pending job (or revives the row named by req.JobID
// on the retry path) and enqueues it for processing.
func (q *Queue) Submit(ctx context.Context, req *models.ConversionRequest) (*models.Job, error) {
	req.Normalize()

	var job *models.Job
	if req.JobID != nil {
		existing, err := q.repo.GetByID(ctx, *req.JobID)
		if err != nil {
			return nil, fmt.Errorf("loading job %d: %w", *req.JobID, err)
		}
		if existing == nil {
			return nil, fmt.Errorf("job %d not found", *req.JobID)
		}
		if err := q.repo.UpdateStatus(ctx, existing.ID, models.JobStatusPending); err != nil {
			return nil, fmt.Errorf("reviving job %d: %w", existing.ID, err)
		}
		existing.Status = models.JobStatusPending
		job = existing
	} else {
		job = &models.Job{
			Status: models.JobStatusPending,
			Source: req.Source,
		}
		if err := q.repo.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("persisting job: %w", err)
		}
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("queue is shutting down")
	}

	select {
	case q.jobs <- submission{job: job, req: req}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	q.logger.Info("job submitted",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("source", req.Source),
		slog.Int("attempt", req.Attempt),
	)
	return job, nil
}

// HasActive reports whether any job is pending or processing, consulting
// durable state rather than in-memory counters.
func (q *Queue) HasActive(ctx context.Context) (bool, error) {
	return q.repo.HasActive(ctx)
}

// Get returns one job by id, nil when absent.
func (q *Queue) Get(ctx context.Context, id uint) (*models.Job, error) {
	return q.repo.GetByID(ctx, id)
}

// List returns the most recent jobs, newest first. Zero or out-of-range
// limits collapse to the configured cap.
func (q *Queue) List(ctx context.Context, limit int) ([]*models.Job, error) {
	ceiling := q.cfg.Server.ListLimit
	if limit <= 0 || limit > ceiling {
		limit = ceiling
	}
	return q.repo.ListRecent(ctx, limit)
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-q.jobs:
			q.process(ctx, sub, logger)
		}
	}
}

// process drives one submission through the job state machine.
func (q *Queue) process(ctx context.Context, sub submission, logger *slog.Logger) {
	job, req := sub.job, sub.req
	logger = observability.WithJobID(logger, job.ID)

	if err := q.repo.UpdateStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
		logger.Error("failed to mark job processing", slog.String("error", err.Error()))
		return
	}

	start := time.Now()
	meta, execErr := q.exec.Execute(ctx, job, req)
	durationSec := time.Since(start).Seconds()

	if execErr != nil {
		logger.Error("job failed",
			slog.Float64("duration_sec", durationSec),
			slog.String("error", execErr.Error()),
		)
		if err := q.repo.UpdateStatus(ctx, job.ID, models.JobStatusFailed); err != nil {
			logger.Error("failed to mark job failed", slog.String("error", err.Error()))
		}
		if q.reporter != nil {
			q.reporter.ReportJobFailure(ctx, job.ID, execErr)
		}
		q.fireCallback(ctx, job.ID, models.JobStatusFailed, 0, req)
		return
	}

	logger.Info("job done",
		slog.Float64("duration_sec", durationSec),
		slog.Float64("media_duration_sec", meta.DurationSec),
	)
	if err := q.repo.UpdateStatus(ctx, job.ID, models.JobStatusDone); err != nil {
		logger.Error("failed to mark job done", slog.String("error", err.Error()))
	}
	q.fireCallback(ctx, job.ID, models.JobStatusDone, meta.DurationSec, req)
}

func (q *Queue) fireCallback(ctx context.Context, id uint, status models.JobStatus, durationSec float64, req *models.ConversionRequest) {
	if q.notifier == nil || req.CallbackURL == "" {
		return
	}
	q.notifier.Notify(ctx, req.CallbackURL, CallbackPayload{
		ID:          id,
		Status:      status,
		DurationSec: durationSec,
		Request:     req,
	})
}
