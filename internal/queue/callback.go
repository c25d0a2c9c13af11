package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/pkg/httpclient"
)

// CallbackPayload notifies the submitter that a job reached a terminal
// state. The original request is echoed back so stateless callers can
// correlate.
type CallbackPayload struct {
	ID          uint                      `json:"id"`
	Status      models.JobStatus          `json:"status"`
	DurationSec float64                   `json:"durationSec,omitempty"`
	Request     *models.ConversionRequest `json:"request"`
}

// Notifier delivers callbacks on a best-effort basis. Delivery failures are
// logged and never affect job state.
type Notifier struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewNotifier creates a callback notifier.
func NewNotifier(client *httpclient.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

// Notify POSTs the payload to url. Errors are swallowed after logging.
func (n *Notifier) Notify(ctx context.Context, url string, payload CallbackPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("callback payload not serializable",
			slog.Uint64("job_id", uint64(payload.ID)),
			slog.String("error", err.Error()),
		)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("callback request invalid",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("callback delivery failed",
			slog.Uint64("job_id", uint64(payload.ID)),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()

	n.logger.Debug("callback delivered",
		slog.Uint64("job_id", uint64(payload.ID)),
		slog.Int("status", resp.StatusCode),
	)
}
