package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vodforge/vodforge/pkg/httpclient"
)

// Downloader fetches remote files over HTTP into the local working directory.
type Downloader struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewDownloader creates a downloader backed by the resilient HTTP client.
func NewDownloader(client *httpclient.Client, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{client: client, logger: logger}
}

// Fetch downloads url to destPath. The destination is written through a
// temporary file in the same directory so a partial download never appears
// under the final name.
func (d *Downloader) Fetch(ctx context.Context, url, destPath string) error {
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", destPath, closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing %s: %w", destPath, err)
	}

	d.logger.Debug("download complete",
		slog.String("url", url),
		slog.String("dest", destPath),
		slog.Int64("bytes", written),
	)
	return nil
}
