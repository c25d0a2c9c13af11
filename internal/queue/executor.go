package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/pipeline"
)

// Executor runs one conversion on behalf of a queue worker.
type Executor interface {
	Execute(ctx context.Context, job *models.Job, req *models.ConversionRequest) (*models.OutputMetadata, error)
}

// ConvertSubcommand is the hidden CLI verb that runs one conversion in an
// isolated process.
const ConvertSubcommand = "convert"

// ProcessExecutor runs each conversion in its own OS process by re-executing
// the current binary with the convert subcommand. A crash in the conversion
// tooling takes down only the child.
type ProcessExecutor struct {
	cfg    *config.Config
	logger *slog.Logger

	// executable overrides the binary to spawn, for tests.
	executable string
}

// NewProcessExecutor creates the default process-per-job executor.
func NewProcessExecutor(cfg *config.Config, logger *slog.Logger) *ProcessExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessExecutor{cfg: cfg, logger: logger}
}

// Execute hands the request to a child process through a file pair and waits
// for it to exit. Exit code zero means the result file carries metadata;
// anything else fails the job.
func (e *ProcessExecutor) Execute(ctx context.Context, job *models.Job, req *models.ConversionRequest) (*models.OutputMetadata, error) {
	bin := e.executable
	if bin == "" {
		var err error
		bin, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
	}

	reqPath, err := WriteRequestFile(e.cfg.Storage.TempDir, req)
	if err != nil {
		return nil, err
	}
	resultPath := ResultFilePath(reqPath)
	defer func() {
		os.Remove(reqPath)
		os.Remove(resultPath)
	}()

	logger := e.logger.With(slog.Uint64("job_id", uint64(job.ID)))
	logger.Info("spawning conversion process",
		slog.String("request_file", reqPath),
	)

	cmd := exec.CommandContext(ctx, bin,
		ConvertSubcommand,
		"--request-file", reqPath,
		"--result-file", resultPath,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()

	result, readErr := ReadResultFile(resultPath)
	if runErr != nil {
		if readErr == nil && result.Error != "" {
			return nil, errors.New(result.Error)
		}
		return nil, fmt.Errorf("conversion process failed: %w", runErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("conversion process exited cleanly but left no result: %w", readErr)
	}
	if result.Error != "" {
		return nil, errors.New(result.Error)
	}
	if result.Metadata == nil {
		return nil, fmt.Errorf("conversion process produced empty result")
	}
	return result.Metadata, nil
}

// InlineExecutor runs conversions in-process. A panic in the tooling is
// contained by a recover boundary, and failed attempts are retried in an
// explicit loop up to the configured ceiling.
type InlineExecutor struct {
	cfg    *config.Config
	run    func(ctx context.Context, req *models.ConversionRequest) (*models.OutputMetadata, error)
	logger *slog.Logger
}

// NewInlineExecutor creates the isolation-free executor.
func NewInlineExecutor(cfg *config.Config, runner *pipeline.Runner, logger *slog.Logger) *InlineExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineExecutor{cfg: cfg, run: runner.Run, logger: logger}
}

// Execute retries the same job id with an incremented attempt counter until
// it succeeds or the retry ceiling is reached.
func (e *InlineExecutor) Execute(ctx context.Context, job *models.Job, req *models.ConversionRequest) (*models.OutputMetadata, error) {
	maxAttempts := e.cfg.Queue.MaxRetry + 1
	if req.Attempt >= maxAttempts {
		return nil, fmt.Errorf("retry attempts exhausted: %d of %d already used", req.Attempt, maxAttempts)
	}

	var lastErr error
	for req.Attempt < maxAttempts {
		req.Attempt++

		meta, err := e.runOnce(ctx, req)
		if err == nil {
			return meta, nil
		}
		lastErr = err

		e.logger.Warn("inline conversion attempt failed",
			slog.Uint64("job_id", uint64(job.ID)),
			slog.Int("attempt", req.Attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error", err.Error()),
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("conversion failed after %d attempts: %w", req.Attempt, lastErr)
}

// runOnce executes a single pipeline run behind a recover boundary.
func (e *InlineExecutor) runOnce(ctx context.Context, req *models.ConversionRequest) (meta *models.OutputMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = fmt.Errorf("conversion panicked: %v", r)
		}
	}()
	return e.run(ctx, req)
}
