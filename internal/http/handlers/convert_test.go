package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/queue"
)

// memJobRepo is an in-memory job store for handler tests.
type memJobRepo struct {
	mu     sync.Mutex
	nextID uint
	jobs   map[uint]*models.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[uint]*models.Job)}
}

func (r *memJobRepo) Create(ctx context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	job.ID = r.nextID
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *memJobRepo) GetByID(ctx context.Context, id uint) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *memJobRepo) ListRecent(ctx context.Context, limit int) ([]*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []*models.Job
	for id := r.nextID; id >= 1 && len(jobs) < limit; id-- {
		if job, ok := r.jobs[id]; ok {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

func (r *memJobRepo) UpdateStatus(ctx context.Context, id uint, status models.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

func (r *memJobRepo) HasActive(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobRepo) FailInterrupted(ctx context.Context) (int64, error) {
	return 0, nil
}

func newTestHandler(t *testing.T) (*ConvertHandler, *memJobRepo) {
	t.Helper()
	repo := newMemJobRepo()
	q := queue.New(config.Default(), repo, nil, nil, nil, nil)
	return NewConvertHandler(q, nil), repo
}

func submitBody() models.ConversionRequest {
	return models.ConversionRequest{
		Source:    "https://cdn.example.com/movie.mp4",
		Qualities: []models.Quality{{Height: 720, Bitrate: 2500}},
		S3: models.S3Target{
			Bucket:          "vod",
			Region:          "us-east-1",
			AccessKeyID:     "AKIATEST",
			SecretAccessKey: "secret",
			Path:            "assets/movie-1",
		},
	}
}

func TestSubmitAcceptsValidRequest(t *testing.T) {
	handler, repo := newTestHandler(t)

	output, err := handler.Submit(context.Background(), &SubmitInput{Body: submitBody()})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if output.Body.Message != "conversion accepted" {
		t.Errorf("expected acceptance message, got %q", output.Body.Message)
	}
	if output.Body.Job.ID == 0 {
		t.Error("expected a persisted job id")
	}
	if output.Body.Job.Status != models.JobStatusPending {
		t.Errorf("expected pending status, got %q", output.Body.Job.Status)
	}

	stored, _ := repo.GetByID(context.Background(), output.Body.Job.ID)
	if stored == nil {
		t.Fatal("expected job row in the store")
	}
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := submitBody()
	body.Source = ""

	_, err := handler.Submit(context.Background(), &SubmitInput{Body: body})
	if err == nil {
		t.Fatal("expected validation error")
	}

	statusErr, ok := err.(huma.StatusError)
	if !ok {
		t.Fatalf("expected a status error, got %T", err)
	}
	if statusErr.GetStatus() != 400 {
		t.Errorf("expected status 400, got %d", statusErr.GetStatus())
	}
	if !strings.Contains(err.Error(), "source is required") {
		t.Errorf("expected first failing field in message, got %q", err.Error())
	}
}

func TestSubmitReportsFirstInvalidField(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := submitBody()
	body.Qualities = nil
	body.S3.Bucket = ""

	_, err := handler.Submit(context.Background(), &SubmitInput{Body: body})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "qualities must be a non-empty array") {
		t.Errorf("expected qualities message first, got %q", err.Error())
	}
}

func TestListReturnsEmptySlice(t *testing.T) {
	handler, _ := newTestHandler(t)

	output, err := handler.List(context.Background(), &ListInput{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if output.Body.Jobs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(output.Body.Jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(output.Body.Jobs))
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	handler, _ := newTestHandler(t)

	for i := 0; i < 3; i++ {
		if _, err := handler.Submit(context.Background(), &SubmitInput{Body: submitBody()}); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	}

	output, err := handler.List(context.Background(), &ListInput{Limit: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(output.Body.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(output.Body.Jobs))
	}
	if output.Body.Jobs[0].ID <= output.Body.Jobs[1].ID {
		t.Errorf("expected newest first, got ids %d, %d", output.Body.Jobs[0].ID, output.Body.Jobs[1].ID)
	}
}

func TestGetReturnsJob(t *testing.T) {
	handler, _ := newTestHandler(t)

	submitted, err := handler.Submit(context.Background(), &SubmitInput{Body: submitBody()})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	output, err := handler.Get(context.Background(), &GetInput{ID: submitted.Body.Job.ID})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if output.Body.ID != submitted.Body.Job.ID {
		t.Errorf("expected job %d, got %d", submitted.Body.Job.ID, output.Body.ID)
	}
}

func TestGetUnknownJobReturns404(t *testing.T) {
	handler, _ := newTestHandler(t)

	_, err := handler.Get(context.Background(), &GetInput{ID: 42})
	if err == nil {
		t.Fatal("expected not-found error")
	}

	statusErr, ok := err.(huma.StatusError)
	if !ok {
		t.Fatalf("expected a status error, got %T", err)
	}
	if statusErr.GetStatus() != 404 {
		t.Errorf("expected status 404, got %d", statusErr.GetStatus())
	}
}
