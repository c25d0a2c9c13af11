// Package handlers provides the HTTP API handlers for vodforge.
package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/queue"
)

// ConvertHandler handles conversion submission and job inspection.
type ConvertHandler struct {
	queue  *queue.Queue
	logger *slog.Logger
}

// NewConvertHandler creates the conversion handler.
func NewConvertHandler(q *queue.Queue, logger *slog.Logger) *ConvertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConvertHandler{queue: q, logger: logger}
}

// SubmitInput is the conversion submission payload.
type SubmitInput struct {
	Body models.ConversionRequest
}

// SubmitOutput acknowledges an accepted conversion.
type SubmitOutput struct {
	Body struct {
		Message string     `json:"message" example:"conversion accepted" doc:"Human-readable acknowledgement"`
		Job     models.Job `json:"job" doc:"The persisted job row"`
	}
}

// ListInput selects how many recent jobs to return.
type ListInput struct {
	Limit int `query:"limit" minimum:"0" doc:"Maximum number of jobs, newest first"`
}

// ListOutput is the recent-jobs listing.
type ListOutput struct {
	Body struct {
		Jobs []*models.Job `json:"jobs"`
	}
}

// GetInput addresses one job.
type GetInput struct {
	ID uint `path:"id" doc:"Job identifier"`
}

// GetOutput is a single job row.
type GetOutput struct {
	Body models.Job
}

// Register registers the conversion routes with the API.
func (h *ConvertHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "submitConversion",
		Method:        "POST",
		Path:          "/",
		Summary:       "Submit a conversion",
		Description:   "Validates the request, persists a pending job, and enqueues it.",
		Tags:          []string{"Conversions"},
		DefaultStatus: 200,
	}, h.Submit)

	huma.Register(api, huma.Operation{
		OperationID: "listJobs",
		Method:      "GET",
		Path:        "/",
		Summary:     "List recent jobs",
		Tags:        []string{"Conversions"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getJob",
		Method:      "GET",
		Path:        "/{id}",
		Summary:     "Get one job",
		Tags:        []string{"Conversions"},
	}, h.Get)
}

// Submit validates and enqueues one conversion request.
func (h *ConvertHandler) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	req := input.Body
	if err := req.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	job, err := h.queue.Submit(ctx, &req)
	if err != nil {
		h.logger.Error("submission failed", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("failed to enqueue conversion")
	}

	out := &SubmitOutput{}
	out.Body.Message = "conversion accepted"
	out.Body.Job = *job
	return out, nil
}

// List returns the most recent jobs, newest first.
func (h *ConvertHandler) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	jobs, err := h.queue.List(ctx, input.Limit)
	if err != nil {
		h.logger.Error("listing jobs failed", slog.String("error", err.Error()))
		return nil, huma.Error404NotFound("jobs unavailable")
	}

	out := &ListOutput{}
	out.Body.Jobs = jobs
	if out.Body.Jobs == nil {
		out.Body.Jobs = []*models.Job{}
	}
	return out, nil
}

// Get returns one job by id.
func (h *ConvertHandler) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	job, err := h.queue.Get(ctx, input.ID)
	if err != nil {
		h.logger.Error("loading job failed",
			slog.Uint64("job_id", uint64(input.ID)),
			slog.String("error", err.Error()),
		)
		return nil, huma.Error500InternalServerError("failed to load job")
	}
	if job == nil {
		return nil, huma.Error404NotFound("job not found")
	}

	return &GetOutput{Body: *job}, nil
}
