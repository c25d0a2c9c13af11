package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Pinger checks a dependency's liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        Pinger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(version string, db Pinger) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		db:        db,
	}
}

// HealthInput is empty.
type HealthInput struct{}

// HealthOutput reports service health.
type HealthOutput struct {
	Body struct {
		Status   string `json:"status" example:"ok"`
		Version  string `json:"version"`
		UptimeS  int64  `json:"uptimeSeconds"`
		Database string `json:"database" example:"ok"`
	}
}

// Register registers the health route with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth reports overall and database health.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	out.Body.Version = h.version
	out.Body.UptimeS = int64(time.Since(h.startTime).Seconds())
	out.Body.Database = "ok"

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			out.Body.Status = "degraded"
			out.Body.Database = err.Error()
		}
	}
	return out, nil
}
