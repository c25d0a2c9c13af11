package subtitle

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// maxSubtitleSize bounds decompressed subtitle payloads.
const maxSubtitleSize = 32 << 20

// fromArchive unpacks a subtitle archive and converts the contained file.
func fromArchive(srcPath, sourceURL, dstPath string) error {
	switch formatOf(sourceURL) {
	case ".zip":
		return fromZip(srcPath, dstPath)
	case ".gz", ".xz", ".bz2":
		return fromCompressedStream(srcPath, sourceURL, dstPath)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, formatOf(sourceURL))
	}
}

// fromZip extracts the first .srt or .vtt entry from a zip archive.
func fromZip(srcPath, dstPath string) error {
	zr, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".srt" && ext != ".vtt" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
		}
		err = writeVTT(io.LimitReader(rc, maxSubtitleSize), ext, dstPath)
		rc.Close()
		return err
	}

	return fmt.Errorf("%w: zip archive contains no subtitle file", ErrUnsupported)
}

// fromCompressedStream handles single-file gzip, xz, and bzip2 wrappers. The
// inner format comes from the name under the compression suffix, e.g.
// "movie.srt.gz".
func fromCompressedStream(srcPath, sourceURL, dstPath string) error {
	innerName := strings.TrimSuffix(urlPath(sourceURL), path.Ext(urlPath(sourceURL)))
	innerExt := strings.ToLower(path.Ext(innerName))
	if innerExt != ".srt" && innerExt != ".vtt" {
		return fmt.Errorf("%w: compressed file %s", ErrUnsupported, path.Base(urlPath(sourceURL)))
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var r io.Reader
	switch formatOf(sourceURL) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening xz stream: %w", err)
		}
		r = xr
	case ".bz2":
		br, err := bzip2.NewReader(f, nil)
		if err != nil {
			return fmt.Errorf("opening bzip2 stream: %w", err)
		}
		defer br.Close()
		r = br
	}

	return writeVTT(io.LimitReader(r, maxSubtitleSize), innerExt, dstPath)
}

// writeVTT writes the decoded subtitle stream to dstPath, converting from
// SubRip when needed.
func writeVTT(r io.Reader, ext, dstPath string) error {
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("creating subtitle: %w", err)
	}

	if ext == ".srt" {
		err = ConvertSRT(r, dst)
	} else {
		_, err = io.Copy(dst, r)
	}
	if err != nil {
		dst.Close()
		return fmt.Errorf("extracting subtitle: %w", err)
	}
	return dst.Close()
}
