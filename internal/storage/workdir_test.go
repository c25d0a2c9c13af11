package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempRoot(t *testing.T) {
	assert.Equal(t, "/data/tmp", TempRoot("/data/tmp"))
	assert.Equal(t, os.TempDir(), TempRoot(""))
}

func TestNewWorkDir(t *testing.T) {
	root := t.TempDir()

	work, err := NewWorkDir(root)
	require.NoError(t, err)

	assert.DirExists(t, work.Root)
	assert.True(t, strings.HasPrefix(filepath.Base(work.Root), WorkDirPrefix))
	assert.NotEmpty(t, work.Token)

	other, err := NewWorkDir(root)
	require.NoError(t, err)
	assert.NotEqual(t, work.Root, other.Root)
}

func TestWorkDirSubAndPath(t *testing.T) {
	work, err := NewWorkDir(t.TempDir())
	require.NoError(t, err)

	sub, err := work.Sub("bundle")
	require.NoError(t, err)
	assert.DirExists(t, sub)
	assert.Equal(t, filepath.Join(work.Root, "bundle"), sub)

	// Sub is idempotent.
	again, err := work.Sub("bundle")
	require.NoError(t, err)
	assert.Equal(t, sub, again)

	assert.Equal(t, filepath.Join(work.Root, "bundle", "playlist.m3u8"), work.Path("bundle", "playlist.m3u8"))
}

func TestWorkDirTaskDirIsUnique(t *testing.T) {
	work, err := NewWorkDir(t.TempDir())
	require.NoError(t, err)

	first, err := work.TaskDir()
	require.NoError(t, err)
	second, err := work.TaskDir()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestWorkDirRemove(t *testing.T) {
	work, err := NewWorkDir(t.TempDir())
	require.NoError(t, err)

	_, err = work.Sub("encode")
	require.NoError(t, err)

	require.NoError(t, work.Remove())
	assert.NoDirExists(t, work.Root)

	// Safe to call again.
	require.NoError(t, work.Remove())
}

func TestCleanTempRoot(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Leftovers from a crashed run.
	require.NoError(t, os.MkdirAll(filepath.Join(root, WorkDirPrefix+"abc123"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, HandoffPrefix+"xyz.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, HandoffPrefix+"xyz.json.result"), []byte("{}"), 0o644))

	// Unrelated entries stay untouched.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "other-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("keep"), 0o644))

	removed, err := CleanTempRoot(logger, root)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	assert.NoDirExists(t, filepath.Join(root, WorkDirPrefix+"abc123"))
	assert.NoFileExists(t, filepath.Join(root, HandoffPrefix+"xyz.json"))
	assert.NoFileExists(t, filepath.Join(root, HandoffPrefix+"xyz.json.result"))
	assert.DirExists(t, filepath.Join(root, "other-dir"))
	assert.FileExists(t, filepath.Join(root, "notes.txt"))
}

func TestCleanTempRootMissingRoot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	removed, err := CleanTempRoot(logger, filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
