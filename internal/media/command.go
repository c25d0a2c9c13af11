package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// runTool executes an external binary and folds the tail of its stderr into
// the returned error. Media tools write everything to stderr, so on failure
// the last lines are what the operator needs.
func runTool(ctx context.Context, logger *slog.Logger, bin string, args ...string) error {
	return runToolInDir(ctx, logger, "", bin, args...)
}

// runToolInDir runs the tool with its working directory set to dir.
func runToolInDir(ctx context.Context, logger *slog.Logger, dir, bin string, args ...string) error {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	name := filepath.Base(bin)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %s", name, err, stderrTail(stderr.String()))
	}

	logger.Debug("tool completed",
		slog.String("tool", name),
		slog.Duration("duration", duration),
	)
	return nil
}

// stderrTail keeps the last few non-empty lines of tool output.
func stderrTail(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimSpace(line))
		}
	}
	const max = 5
	if len(kept) > max {
		kept = kept[len(kept)-max:]
	}
	return strings.Join(kept, " | ")
}
