// Package subtitle normalizes external subtitle sources into WebVTT files
// ready for HLS packaging. Sources arrive as plain .vtt or .srt files, or as
// zip, gzip, xz, or bzip2 archives wrapping one of those.
package subtitle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// ErrUnsupported marks a subtitle source whose format cannot be handled.
// Callers skip such sources instead of failing the job.
var ErrUnsupported = errors.New("unsupported subtitle format")

// FromFile turns the downloaded subtitle at srcPath into a WebVTT file at
// dstPath. The source URL decides the format, not the local temp name.
func FromFile(srcPath, sourceURL, dstPath string) error {
	switch formatOf(sourceURL) {
	case ".vtt":
		return copyFile(srcPath, dstPath)
	case ".srt":
		return convertFile(srcPath, dstPath)
	case ".zip", ".gz", ".xz", ".bz2":
		return fromArchive(srcPath, sourceURL, dstPath)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, path.Ext(urlPath(sourceURL)))
	}
}

// formatOf returns the lowercased extension of the source URL's path.
func formatOf(sourceURL string) string {
	return strings.ToLower(path.Ext(urlPath(sourceURL)))
}

// urlPath strips query and fragment from a URL or plain path.
func urlPath(sourceURL string) string {
	if i := strings.IndexAny(sourceURL, "?#"); i >= 0 {
		sourceURL = sourceURL[:i]
	}
	return sourceURL
}

// copyFile copies a .vtt source byte for byte.
func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening subtitle: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("creating subtitle: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying subtitle: %w", err)
	}
	return dst.Close()
}

// convertFile converts a .srt source into WebVTT.
func convertFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening subtitle: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("creating subtitle: %w", err)
	}

	if err := ConvertSRT(src, dst); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
