package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vodforge/vodforge/internal/config"
)

// Reporter is a fire-and-forget error reporting sink. Delivery failures are
// logged and never escalated; a disabled reporter is a no-op.
type Reporter struct {
	cfg    config.TelemetryConfig
	client *http.Client
	logger *slog.Logger
}

// NewReporter creates a telemetry reporter from configuration.
func NewReporter(cfg config.TelemetryConfig, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// errorReport is the payload posted to the sink.
type errorReport struct {
	Application string `json:"application"`
	JobID       uint   `json:"job_id,omitempty"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
}

// ReportJobFailure posts a terminal job failure to the sink, if enabled.
func (r *Reporter) ReportJobFailure(ctx context.Context, jobID uint, jobErr error) {
	if !r.cfg.Enabled || r.cfg.SinkURL == "" || jobErr == nil {
		return
	}

	body, err := json.Marshal(errorReport{
		Application: "vodforge",
		JobID:       jobID,
		Message:     jobErr.Error(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Warn("failed to encode telemetry report", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.SinkURL, bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("failed to build telemetry request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("telemetry delivery failed",
			slog.Uint64("job_id", uint64(jobID)),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		r.logger.Warn("telemetry sink rejected report",
			slog.Uint64("job_id", uint64(jobID)),
			slog.Int("status", resp.StatusCode),
		)
	}
}
