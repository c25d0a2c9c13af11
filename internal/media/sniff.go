// Package media wraps the external tooling that inspects and transforms
// source files: container sniffing, ffprobe analysis, ffmpeg encoding,
// thumbnail extraction, and HLS packaging via shaka packager.
package media

import (
	"bytes"
	"fmt"
	"os"
)

// sniffLen is how much of the file header the sniffer reads.
const sniffLen = 512

// Container identifies a media container format detected from file content.
type Container struct {
	Name string
	Ext  string
}

// Known containers.
var (
	ContainerMP4      = Container{Name: "mp4", Ext: "mp4"}
	ContainerMOV      = Container{Name: "quicktime", Ext: "mov"}
	ContainerMatroska = Container{Name: "matroska", Ext: "mkv"}
	ContainerWebM     = Container{Name: "webm", Ext: "webm"}
	ContainerAVI      = Container{Name: "avi", Ext: "avi"}
	ContainerMPEGTS   = Container{Name: "mpegts", Ext: "ts"}
	ContainerFLV      = Container{Name: "flv", Ext: "flv"}
)

// DetectContainer sniffs the container format from the file's leading bytes.
// The source URL's extension is never trusted; only content decides. The
// second return value is false when the format is not recognized.
func DetectContainer(path string) (Container, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Container{}, false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return Container{}, false, fmt.Errorf("reading %s: %w", path, err)
	}
	buf = buf[:n]

	c, ok := sniffContainer(buf)
	return c, ok, nil
}

func sniffContainer(buf []byte) (Container, bool) {
	// ISO BMFF: size field then "ftyp" at offset 4. QuickTime brands get
	// the mov extension, everything else mp4.
	if len(buf) >= 12 && bytes.Equal(buf[4:8], []byte("ftyp")) {
		if bytes.Equal(buf[8:12], []byte("qt  ")) {
			return ContainerMOV, true
		}
		return ContainerMP4, true
	}

	// EBML header for matroska and webm. The DocType string appears within
	// the first few dozen bytes.
	if len(buf) >= 4 && bytes.Equal(buf[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		if bytes.Contains(buf, []byte("webm")) {
			return ContainerWebM, true
		}
		return ContainerMatroska, true
	}

	// RIFF container with an AVI form type.
	if len(buf) >= 12 && bytes.Equal(buf[0:4], []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("AVI ")) {
		return ContainerAVI, true
	}

	// MPEG-TS: 0x47 sync byte repeating at the 188-byte packet boundary.
	if len(buf) >= 189 && buf[0] == 0x47 && buf[188] == 0x47 {
		return ContainerMPEGTS, true
	}

	if len(buf) >= 3 && bytes.Equal(buf[0:3], []byte("FLV")) {
		return ContainerFLV, true
	}

	return Container{}, false
}
