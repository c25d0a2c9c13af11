// Package models defines GORM database models and wire types for vodforge.
package models

import (
	"time"
)

// JobStatus represents the current status of a conversion job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for a worker slot.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates the job's pipeline is executing.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusDone indicates the job completed successfully.
	JobStatusDone JobStatus = "done"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// Job is the durable record of one conversion request. Status transitions are
// strictly pending -> processing -> done|failed; a failed job may be
// resubmitted under the same id up to the retry ceiling.
type Job struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Status    JobStatus `gorm:"not null;default:'pending';size:20;index" json:"status"`
	Source    string    `gorm:"not null;size:2048" json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// IsTerminal returns true if the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// IsActive returns true if the job is pending or processing.
func (j *Job) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

// MarkProcessing flips the job to processing.
func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
}

// MarkDone flips the job to done.
func (j *Job) MarkDone() {
	j.Status = JobStatusDone
}

// MarkFailed flips the job to failed.
func (j *Job) MarkFailed() {
	j.Status = JobStatusFailed
}
