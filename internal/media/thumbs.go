package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ThumbnailPlaylistName is the media playlist listing the thumbnail track.
const ThumbnailPlaylistName = "thumbnails.m3u8"

// ThumbnailExtractor samples still frames from a source at a fixed interval.
type ThumbnailExtractor struct {
	ffmpegPath string
	logger     *slog.Logger
}

// NewThumbnailExtractor creates a thumbnail extractor.
func NewThumbnailExtractor(ffmpegPath string, logger *slog.Logger) *ThumbnailExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThumbnailExtractor{ffmpegPath: ffmpegPath, logger: logger}
}

// Extract samples one JPEG every intervalSec seconds, starting at t=0, into
// outDir. It returns the generated file names in playback order.
func (t *ThumbnailExtractor) Extract(ctx context.Context, input, outDir string, intervalSec int) ([]string, error) {
	if intervalSec <= 0 {
		intervalSec = 5
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating thumbnail directory: %w", err)
	}

	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-vf", fmt.Sprintf("fps=1/%d", intervalSec),
		"-q:v", "3",
		filepath.Join(outDir, "thumb_%04d.jpg"),
	}

	if err := runTool(ctx, t.logger, t.ffmpegPath, args...); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("listing thumbnails: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	t.logger.Info("thumbnails extracted",
		slog.Int("count", len(names)),
		slog.Int("interval_sec", intervalSec),
	)
	return names, nil
}

// WriteThumbnailPlaylist writes an images-only media playlist next to the
// thumbnails. Each entry covers one sampling interval of playback time.
func WriteThumbnailPlaylist(dir string, names []string, intervalSec int) error {
	if intervalSec <= 0 {
		intervalSec = 5
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:7\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", intervalSec)
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	b.WriteString("#EXT-X-IMAGES-ONLY\n")
	for _, name := range names {
		fmt.Fprintf(&b, "#EXTINF:%d.0,\n", intervalSec)
		b.WriteString(name + "\n")
	}
	b.WriteString("#EXT-X-ENDLIST\n")

	path := filepath.Join(dir, ThumbnailPlaylistName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing thumbnail playlist: %w", err)
	}
	return nil
}
