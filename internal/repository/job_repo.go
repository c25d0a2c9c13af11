// Package repository provides data access for persisted vodforge entities.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vodforge/vodforge/internal/models"
)

// JobRepository is the durable job store. It is the single arbiter of job
// status; each job row is mutated only by the worker that owns the job's
// lifecycle transition.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uint) (*models.Job, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Job, error)
	UpdateStatus(ctx context.Context, id uint, status models.JobStatus) error
	HasActive(ctx context.Context) (bool, error)
	FailInterrupted(ctx context.Context) (int64, error)
}

// jobRepo implements JobRepository using GORM.
type jobRepo struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job row.
func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by id. Returns nil without error when absent.
func (r *jobRepo) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting job by id: %w", err)
	}
	return &job, nil
}

// ListRecent retrieves jobs most-recent-first, bounded by limit.
func (r *jobRepo) ListRecent(ctx context.Context, limit int) ([]*models.Job, error) {
	var jobs []*models.Job
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// UpdateStatus persists a status transition for one job.
func (r *jobRepo) UpdateStatus(ctx context.Context, id uint, status models.JobStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating job status: job %d not found", id)
	}
	return nil
}

// HasActive reports whether any job is pending or processing. The watchdog
// consults this durable view rather than in-memory pool occupancy.
func (r *jobRepo) HasActive(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusProcessing}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("counting active jobs: %w", err)
	}
	return count > 0, nil
}

// FailInterrupted forces every non-terminal job to failed. Called once on
// startup: an interrupted job cannot be resumed safely, so it is considered
// lost. Returns the number of rows rewritten.
func (r *jobRepo) FailInterrupted(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusProcessing}).
		Update("status", models.JobStatusFailed)
	if result.Error != nil {
		return 0, fmt.Errorf("failing interrupted jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
