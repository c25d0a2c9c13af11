// Package watchdog implements the idle-shutdown check: on a cron schedule it
// consults durable job state, and when nothing is pending or processing it
// cleans the temp root and terminates the process so the supervising
// autoscaler can reclaim the node.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/storage"
)

// checkTimeout bounds one idle check against a stuck database.
const checkTimeout = 10 * time.Second

// Watchdog periodically decides whether the node should keep running.
type Watchdog struct {
	cfg       config.WatchdogConfig
	tempDir   string
	hasActive func(ctx context.Context) (bool, error)
	logger    *slog.Logger
	cron      *cron.Cron

	// exit terminates the process; replaced in tests.
	exit func(code int)
}

// New creates a watchdog consulting hasActive for durable activity.
func New(cfg *config.Config, hasActive func(ctx context.Context) (bool, error), logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		cfg:       cfg.Watchdog,
		tempDir:   cfg.Storage.TempDir,
		hasActive: hasActive,
		logger:    logger,
		exit:      os.Exit,
	}
}

// Start schedules the idle check. With IgnoreCheckProcess set the watchdog
// never runs and the process lives until stopped externally.
func (w *Watchdog) Start() error {
	if w.cfg.IgnoreCheckProcess {
		w.logger.Info("idle-shutdown watchdog disabled")
		return nil
	}

	w.cron = cron.New(cron.WithSeconds())
	if _, err := w.cron.AddFunc(w.cfg.Cron, w.check); err != nil {
		return fmt.Errorf("scheduling watchdog: %w", err)
	}
	w.cron.Start()

	w.logger.Info("idle-shutdown watchdog started", slog.String("schedule", w.cfg.Cron))
	return nil
}

// Stop halts the schedule. Running checks finish on their own.
func (w *Watchdog) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

// check is one watchdog tick.
func (w *Watchdog) check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	active, err := w.hasActive(ctx)
	if err != nil {
		w.logger.Warn("idle check failed", slog.String("error", err.Error()))
		return
	}
	if active {
		return
	}

	w.logger.Info("no active jobs, shutting down")
	if _, err := storage.CleanTempRoot(w.logger, w.tempDir); err != nil {
		w.logger.Warn("temp cleanup before shutdown failed", slog.String("error", err.Error()))
	}
	w.exit(0)
}
