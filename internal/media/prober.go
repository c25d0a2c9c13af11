package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// ErrNoVideoStream is returned when a source contains no usable video stream.
var ErrNoVideoStream = errors.New("no usable video stream in source")

// stillImageCodecs are video codecs that carry embedded artwork rather than
// moving pictures. They never qualify as the reference stream.
var stillImageCodecs = map[string]bool{
	"mjpeg": true,
	"png":   true,
	"bmp":   true,
	"gif":   true,
}

// ProbeResult contains the parsed ffprobe output.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat contains container format information.
type ProbeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	NumStreams int    `json:"nb_streams"`
}

// ProbeStream contains per-stream information.
type ProbeStream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"` // video, audio, subtitle, data
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	BitRate       string            `json:"bit_rate,omitempty"`
	Channels      int               `json:"channels,omitempty"`
	ChannelLayout string            `json:"channel_layout,omitempty"`
	SampleRate    string            `json:"sample_rate,omitempty"`
	Duration      string            `json:"duration,omitempty"`
	Disposition   ProbeDisposition  `json:"disposition,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// ProbeDisposition contains stream disposition flags.
type ProbeDisposition struct {
	Default     int `json:"default"`
	Forced      int `json:"forced"`
	AttachedPic int `json:"attached_pic"`
}

// Language returns the stream's language tag, or "und" when untagged.
func (s ProbeStream) Language() string {
	if lang, ok := s.Tags["language"]; ok && lang != "" {
		return lang
	}
	return "und"
}

// BitRateBPS returns the stream bitrate in bits per second, 0 when unknown.
func (s ProbeStream) BitRateBPS() int {
	if s.BitRate == "" {
		return 0
	}
	bps, err := strconv.Atoi(s.BitRate)
	if err != nil {
		return 0
	}
	return bps
}

// DurationSec parses the container duration in seconds, 0 when unknown.
func (r *ProbeResult) DurationSec() float64 {
	if r.Format.Duration == "" {
		return 0
	}
	dur, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return 0
	}
	return dur
}

// VideoStreams returns real video streams, skipping attached pictures and
// still-image codecs.
func (r *ProbeResult) VideoStreams() []ProbeStream {
	var out []ProbeStream
	for _, s := range r.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Disposition.AttachedPic == 1 || stillImageCodecs[s.CodecName] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AudioStreams returns all audio streams in container order.
func (r *ProbeResult) AudioStreams() []ProbeStream {
	var out []ProbeStream
	for _, s := range r.Streams {
		if s.CodecType == "audio" {
			out = append(out, s)
		}
	}
	return out
}

// ReferenceStream selects the video stream that drives quality decisions:
// the one with the greatest height. Ties keep the earliest stream.
func (r *ProbeResult) ReferenceStream() (ProbeStream, error) {
	videos := r.VideoStreams()
	if len(videos) == 0 {
		return ProbeStream{}, ErrNoVideoStream
	}

	ref := videos[0]
	for _, s := range videos[1:] {
		if s.Height > ref.Height {
			ref = s
		}
	}
	return ref, nil
}

// Prober handles ffprobe operations.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a new file prober.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     60 * time.Second,
	}
}

// WithTimeout sets the probe timeout.
func (p *Prober) WithTimeout(timeout time.Duration) *Prober {
	p.timeout = timeout
	return p
}

// Probe inspects a local media file and returns stream information.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("probe timeout after %v", p.timeout)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	return &result, nil
}
