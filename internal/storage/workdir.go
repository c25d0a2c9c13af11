// Package storage manages the shared temporary-file area used during
// conversion. Every job gets a fresh working directory under the temp root;
// the root is cleaned on startup and on watchdog shutdown.
package storage

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// WorkDirPrefix is the prefix used for vodforge job working directories.
const WorkDirPrefix = "vodforge-job-"

// HandoffPrefix is the prefix used for request and result handoff files
// exchanged with per-job conversion processes.
const HandoffPrefix = "vodforge-handoff-"

// TempRoot resolves the shared temp root. An empty configured dir means the
// OS temp directory.
func TempRoot(configured string) string {
	if configured != "" {
		return configured
	}
	return os.TempDir()
}

// WorkDir is one job's isolated working directory tree.
type WorkDir struct {
	// Root is the job-scoped directory; deleted unconditionally on teardown.
	Root string
	// Token is the unique suffix used to namespace this job's tree.
	Token string
}

// NewWorkDir creates a fresh unique working directory for one job under the
// temp root.
func NewWorkDir(tempRoot string) (*WorkDir, error) {
	token := strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
	root := filepath.Join(TempRoot(tempRoot), WorkDirPrefix+token)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	return &WorkDir{Root: root, Token: token}, nil
}

// Sub creates (if needed) and returns a named subdirectory of the job tree.
func (w *WorkDir) Sub(name string) (string, error) {
	dir := filepath.Join(w.Root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating subdirectory %s: %w", name, err)
	}
	return dir, nil
}

// TaskDir returns a fresh unique subdirectory for one sub-task, avoiding
// collisions between concurrent per-track operations.
func (w *WorkDir) TaskDir() (string, error) {
	return w.Sub("task-" + uuid.NewString())
}

// Path joins elements onto the working directory root.
func (w *WorkDir) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// Remove deletes the whole job tree. Safe to call multiple times.
func (w *WorkDir) Remove() error {
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("removing working directory: %w", err)
	}
	return nil
}

// CleanTempRoot removes every job working directory under the temp root.
// Called on startup (crash leftovers) and on watchdog shutdown. Returns the
// number of directories removed.
func CleanTempRoot(logger *slog.Logger, tempRoot string) (int, error) {
	root := TempRoot(tempRoot)

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading temp root: %w", err)
	}

	var removed int
	for _, entry := range entries {
		isJobDir := entry.IsDir() && strings.HasPrefix(entry.Name(), WorkDirPrefix)
		isHandoff := !entry.IsDir() && strings.HasPrefix(entry.Name(), HandoffPrefix)
		if !isJobDir && !isHandoff {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove job leftover",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}

		logger.Info("removed job leftover", slog.String("path", path))
		removed++
	}

	return removed, nil
}
