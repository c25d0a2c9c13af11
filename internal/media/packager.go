package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"golang.org/x/text/language"
)

// MasterPlaylistName is the multivariant playlist produced by packaging.
const MasterPlaylistName = "playlist.m3u8"

// StreamDescriptor describes one input stream handed to shaka packager.
type StreamDescriptor struct {
	// In is the path of the encoded input file.
	In string
	// Stream selects the stream family: audio, video, or text.
	Stream string
	// SegmentTemplate is the segment naming pattern, e.g. "720/seg_$Number$.ts".
	SegmentTemplate string
	// PlaylistName is the media playlist path for this stream.
	PlaylistName string
	// GroupID is the HLS group this stream joins, e.g. "audio".
	GroupID string
	// Name is the human-readable HLS rendition name.
	Name string
	// Language is the BCP 47 tag for audio and text streams.
	Language string
}

// render builds the comma-separated descriptor argument.
func (d StreamDescriptor) render() string {
	parts := []string{
		"in=" + d.In,
		"stream=" + d.Stream,
		"segment_template=" + d.SegmentTemplate,
		"playlist_name=" + d.PlaylistName,
	}
	if d.GroupID != "" {
		parts = append(parts, "hls_group_id="+d.GroupID)
	}
	if d.Name != "" {
		parts = append(parts, "hls_name="+d.Name)
	}
	if d.Language != "" {
		parts = append(parts, "language="+d.Language)
	}
	return strings.Join(parts, ",")
}

// PackageJob describes one packaging run.
type PackageJob struct {
	Descriptors []StreamDescriptor
	// WorkDir is the directory the packager runs in. Descriptor paths are
	// relative to it.
	WorkDir string
	// DefaultAudioLang is the requested default audio language. It is only
	// applied when it matches one of the audio descriptor languages.
	DefaultAudioLang string
	// SegmentDuration is the target segment length in seconds.
	SegmentDuration int
}

// Packager assembles the HLS bundle with shaka packager in a single
// invocation.
type Packager struct {
	binPath string
	logger  *slog.Logger
}

// NewPackager creates a packager using the given binary.
func NewPackager(binPath string, logger *slog.Logger) *Packager {
	if binPath == "" {
		binPath = "packager"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Packager{binPath: binPath, logger: logger}
}

// Package runs shaka packager over all descriptors and validates the
// resulting master playlist.
func (p *Packager) Package(ctx context.Context, job PackageJob) error {
	if len(job.Descriptors) == 0 {
		return fmt.Errorf("no streams to package")
	}

	segDur := job.SegmentDuration
	if segDur <= 0 {
		segDur = 6
	}

	args := make([]string, 0, len(job.Descriptors)+6)
	for _, d := range job.Descriptors {
		args = append(args, d.render())
	}
	args = append(args,
		"--hls_master_playlist_output", MasterPlaylistName,
		"--segment_duration", fmt.Sprintf("%d", segDur),
	)

	if lang, ok := matchDefaultLanguage(job.DefaultAudioLang, audioLanguages(job.Descriptors)); ok {
		args = append(args, "--default_language", lang)
	} else if job.DefaultAudioLang != "" && job.DefaultAudioLang != "und" {
		p.logger.Warn("requested default audio language not present, packager will pick",
			slog.String("requested", job.DefaultAudioLang),
		)
	}

	p.logger.Info("packaging hls bundle",
		slog.Int("streams", len(job.Descriptors)),
	)

	if err := runToolInDir(ctx, p.logger, job.WorkDir, p.binPath, args...); err != nil {
		return err
	}

	return ValidateMasterPlaylist(filepath.Join(job.WorkDir, MasterPlaylistName))
}

// audioLanguages collects the language tags of audio descriptors in order.
func audioLanguages(descriptors []StreamDescriptor) []string {
	var langs []string
	for _, d := range descriptors {
		if d.Stream == "audio" && d.Language != "" {
			langs = append(langs, d.Language)
		}
	}
	return langs
}

// matchDefaultLanguage finds the first available language whose primary
// subtag matches the requested one. "pt-BR" matches "pt", "en-US" matches
// "en". No match means the flag is omitted.
func matchDefaultLanguage(requested string, available []string) (string, bool) {
	if requested == "" || requested == "und" {
		return "", false
	}

	reqTag, err := language.Parse(requested)
	if err != nil {
		return "", false
	}
	reqBase, _ := reqTag.Base()

	for _, avail := range available {
		tag, err := language.Parse(avail)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		if base == reqBase {
			return avail, true
		}
	}
	return "", false
}

// ValidateMasterPlaylist parses the master playlist and verifies it is a
// multivariant playlist with at least one variant.
func ValidateMasterPlaylist(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading master playlist: %w", err)
	}

	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parsing master playlist: %w", err)
	}

	mv, ok := pl.(*playlist.Multivariant)
	if !ok {
		return fmt.Errorf("master playlist is not multivariant")
	}
	if len(mv.Variants) == 0 {
		return fmt.Errorf("master playlist has no variants")
	}
	return nil
}

// AppendImageStream adds the thumbnail track to an existing master playlist
// with an EXT-X-IMAGE-STREAM-INF tag.
func AppendImageStream(masterPath, uri string, width, height int) error {
	data, err := os.ReadFile(masterPath)
	if err != nil {
		return fmt.Errorf("reading master playlist: %w", err)
	}

	tag := fmt.Sprintf(
		"#EXT-X-IMAGE-STREAM-INF:BANDWIDTH=100000,CODECS=\"jpeg\",RESOLUTION=%dx%d,URI=\"%s\"\n",
		width, height, uri,
	)

	content := string(data)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += tag

	if err := os.WriteFile(masterPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing master playlist: %w", err)
	}
	return nil
}
