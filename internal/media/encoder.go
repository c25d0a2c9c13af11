package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// DefaultAudioBitrate is used when the source stream carries no bitrate
// metadata.
const DefaultAudioBitrate = 128_000

// Encoder runs ffmpeg transcodes.
type Encoder struct {
	ffmpegPath string
	logger     *slog.Logger
}

// NewEncoder creates an encoder using the given ffmpeg binary.
func NewEncoder(ffmpegPath string, logger *slog.Logger) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{ffmpegPath: ffmpegPath, logger: logger}
}

// VideoJob describes one video rendition.
type VideoJob struct {
	Input       string
	Output      string
	StreamIndex int
	Width       int
	Height      int
	Bitrate     string // e.g. "2500k"
}

// AudioJob describes one mono audio track extraction.
type AudioJob struct {
	Input       string
	Output      string
	StreamIndex int
	// BitrateBPS is the target bitrate in bits per second. Zero falls back
	// to DefaultAudioBitrate.
	BitrateBPS int
}

// EncodeVideo produces a single H.264 rendition at the exact target
// dimensions.
func (e *Encoder) EncodeVideo(ctx context.Context, job VideoJob) error {
	args := []string{
		"-hide_banner", "-y",
		"-i", job.Input,
		"-map", fmt.Sprintf("0:%d", job.StreamIndex),
		"-an", "-sn",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-vf", fmt.Sprintf("scale=%d:%d", job.Width, job.Height),
		"-b:v", job.Bitrate,
		"-maxrate", job.Bitrate,
		"-bufsize", job.Bitrate,
		"-pix_fmt", "yuv420p",
		job.Output,
	}

	e.logger.Info("encoding video rendition",
		slog.Int("height", job.Height),
		slog.String("bitrate", job.Bitrate),
	)
	return runTool(ctx, e.logger, e.ffmpegPath, args...)
}

// EncodeAudio extracts one audio stream as mono AAC at the source bitrate,
// or DefaultAudioBitrate when the source carries none.
func (e *Encoder) EncodeAudio(ctx context.Context, job AudioJob) error {
	bitrate := job.BitrateBPS
	if bitrate <= 0 {
		bitrate = DefaultAudioBitrate
	}

	args := []string{
		"-hide_banner", "-y",
		"-i", job.Input,
		"-map", fmt.Sprintf("0:%d", job.StreamIndex),
		"-vn", "-sn",
		"-ac", "1",
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%d", bitrate),
		job.Output,
	}

	e.logger.Info("encoding audio track",
		slog.Int("stream", job.StreamIndex),
		slog.Int("bitrate_bps", bitrate),
	)
	return runTool(ctx, e.logger, e.ffmpegPath, args...)
}

// ScaleDimensions computes the output dimensions for a target height,
// preserving the source aspect ratio. Encoders reject odd dimensions, so
// both axes are rounded up to the next even value.
func ScaleDimensions(srcWidth, srcHeight, targetHeight int) (int, int) {
	if srcHeight <= 0 || srcWidth <= 0 {
		return evenUp(targetHeight), evenUp(targetHeight)
	}

	width := int(math.Round(float64(srcWidth) * float64(targetHeight) / float64(srcHeight)))
	return evenUp(width), evenUp(targetHeight)
}

func evenUp(v int) int {
	if v%2 != 0 {
		return v + 1
	}
	return v
}
