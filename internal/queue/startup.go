package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/storage"
)

// Recover prepares the queue after a restart: interrupted jobs are marked
// failed, crash leftovers under the temp root are removed, and configured
// seed requests are replayed as ordinary submissions.
func (q *Queue) Recover(ctx context.Context) error {
	failed, err := q.repo.FailInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("failing interrupted jobs: %w", err)
	}
	if failed > 0 {
		q.logger.Warn("marked interrupted jobs as failed", slog.Int64("count", failed))
	}

	removed, err := storage.CleanTempRoot(q.logger, q.cfg.Storage.TempDir)
	if err != nil {
		q.logger.Warn("temp root cleanup failed", slog.String("error", err.Error()))
	} else if removed > 0 {
		q.logger.Info("cleaned temp root", slog.Int("removed", removed))
	}

	return q.replaySeeds(ctx)
}

// replaySeeds submits the configured initial items. Invalid entries are
// skipped with a warning; they never block startup.
func (q *Queue) replaySeeds(ctx context.Context) error {
	seeds, err := ParseInitialItems(q.cfg.Queue.InitialItems)
	if err != nil {
		return fmt.Errorf("parsing initial items: %w", err)
	}

	for i, req := range seeds {
		if err := req.Validate(); err != nil {
			q.logger.Warn("skipping invalid seed request",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if _, err := q.Submit(ctx, req); err != nil {
			q.logger.Warn("seed submission failed",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ParseInitialItems decodes the seed configuration: a JSON array of requests
// or a single request object. Empty input yields nothing.
func ParseInitialItems(raw string) ([]*models.ConversionRequest, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var seeds []*models.ConversionRequest
		if err := json.Unmarshal([]byte(raw), &seeds); err != nil {
			return nil, fmt.Errorf("decoding seed array: %w", err)
		}
		return seeds, nil
	}

	var single models.ConversionRequest
	if err := json.Unmarshal([]byte(raw), &single); err != nil {
		return nil, fmt.Errorf("decoding seed object: %w", err)
	}
	return []*models.ConversionRequest{&single}, nil
}
