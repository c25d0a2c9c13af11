package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vodforge/vodforge/internal/media"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/storage"
	"github.com/vodforge/vodforge/internal/subtitle"
)

// encodeAll runs the audio, video, and subtitle task families in parallel.
// The first permanent encode failure cancels everything still running.
// Subtitle problems never fail the job; the track is skipped with a warning.
func (r *Runner) encodeAll(
	ctx context.Context,
	work *storage.WorkDir,
	sourcePath string,
	ref media.ProbeStream,
	probe *media.ProbeResult,
	qualities []models.Quality,
	req *models.ConversionRequest,
	subtitleFiles map[int]string,
	logger *slog.Logger,
) ([]encodedVideo, []encodedAudio, []preparedSubtitle, error) {
	encDir, err := work.Sub("encode")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating encode directory: %w", err)
	}

	var tasks []task

	videos := make([]encodedVideo, len(qualities))
	for i, q := range qualities {
		i, q := i, q
		outDir := filepath.Join(encDir, fmt.Sprintf("%d", q.Height))
		outPath := filepath.Join(outDir, "encoded_video.mp4")
		videos[i] = encodedVideo{Path: outPath, Quality: q}

		width, height := media.ScaleDimensions(ref.Width, ref.Height, q.Height)
		tasks = append(tasks, task{
			name: fmt.Sprintf("video[%d]", q.Height),
			run: func(ctx context.Context) error {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				return r.encoder.EncodeVideo(ctx, media.VideoJob{
					Input:       sourcePath,
					Output:      outPath,
					StreamIndex: ref.Index,
					Width:       width,
					Height:      height,
					Bitrate:     fmt.Sprintf("%dk", q.Bitrate),
				})
			},
		})
	}

	audioStreams := probe.AudioStreams()
	audioNames := uniqueNames(audioLangs(audioStreams))
	audios := make([]encodedAudio, len(audioStreams))
	for i, s := range audioStreams {
		i, s := i, s
		name := audioNames[i]
		outDir := filepath.Join(encDir, "audio", name)
		outPath := filepath.Join(outDir, "encoded_audio.aac")
		audios[i] = encodedAudio{
			Path:     outPath,
			Language: s.Language(),
			Title:    s.Tags["title"],
			Name:     name,
		}

		tasks = append(tasks, task{
			name: fmt.Sprintf("audio[%s]", name),
			run: func(ctx context.Context) error {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				return r.encoder.EncodeAudio(ctx, media.AudioJob{
					Input:       sourcePath,
					Output:      outPath,
					StreamIndex: s.Index,
					BitrateBPS:  s.BitRateBPS(),
				})
			},
		})
	}

	subDir := filepath.Join(encDir, "subtitles")
	subNames := uniqueNames(subtitleLangs(req.Subtitles))

	var subMu sync.Mutex
	prepared := make([]preparedSubtitle, len(req.Subtitles))

	for i := range req.Subtitles {
		srcFile, ok := subtitleFiles[i]
		if !ok {
			continue
		}
		i, sub, srcFile := i, req.Subtitles[i], srcFile
		name := subNames[i]
		outPath := filepath.Join(subDir, name+".vtt")

		tasks = append(tasks, task{
			name:    fmt.Sprintf("subtitle[%s]", name),
			noRetry: true,
			run: func(ctx context.Context) error {
				if err := os.MkdirAll(subDir, 0o755); err != nil {
					return err
				}
				if err := subtitle.FromFile(srcFile, sub.URL, outPath); err != nil {
					if !errors.Is(err, subtitle.ErrUnsupported) {
						logger.Warn("subtitle conversion failed, skipping track",
							slog.String("url", sub.URL),
							slog.String("error", err.Error()),
						)
					} else {
						logger.Warn("unsupported subtitle format, skipping track",
							slog.String("url", sub.URL),
						)
					}
					return nil
				}
				subMu.Lock()
				prepared[i] = preparedSubtitle{
					Path:     outPath,
					Language: sub.Language,
					Name:     name,
				}
				subMu.Unlock()
				return nil
			},
		})
	}

	if err := r.fanOut(ctx, tasks, logger); err != nil {
		return nil, nil, nil, err
	}

	var subs []preparedSubtitle
	for _, p := range prepared {
		if p.Path != "" {
			subs = append(subs, p)
		}
	}
	return videos, audios, subs, nil
}

func audioLangs(streams []media.ProbeStream) []string {
	langs := make([]string, len(streams))
	for i, s := range streams {
		langs[i] = s.Language()
	}
	return langs
}

func subtitleLangs(sources []models.SubtitleSource) []string {
	langs := make([]string, len(sources))
	for i, s := range sources {
		langs[i] = s.Language
	}
	return langs
}

// uniqueNames disambiguates repeated names with an occurrence-count prefix:
// "en", "1_en", "2_en".
func uniqueNames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if n := seen[name]; n > 0 {
			out[i] = fmt.Sprintf("%d_%s", n, name)
		} else {
			out[i] = name
		}
		seen[name]++
	}
	return out
}
