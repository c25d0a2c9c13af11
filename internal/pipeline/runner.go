// Package pipeline orchestrates one conversion from source URL to uploaded
// HLS bundle: download, probe, encode, subtitle normalization, thumbnail
// extraction, packaging, and upload. A Runner executes exactly one request
// and tears its working directory down unconditionally.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/media"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/storage"
	"github.com/vodforge/vodforge/internal/transfer"
	"github.com/vodforge/vodforge/pkg/httpclient"
)

// uploader is the slice of transfer.Uploader the pipeline needs. Tests
// substitute a fake.
type uploader interface {
	UploadDir(ctx context.Context, localRoot string) ([]string, error)
	UploadMany(ctx context.Context, items map[string]string) error
	Key(rel string) string
}

// Runner executes conversion requests.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	downloader *transfer.Downloader
	prober     *media.Prober
	encoder    *media.Encoder
	thumbs     *media.ThumbnailExtractor
	packager   *media.Packager

	// newUploader builds the per-job uploader from request credentials.
	newUploader func(ctx context.Context, target models.S3Target) (uploader, error)
}

// NewRunner wires a runner from configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	hcCfg := httpclient.DefaultConfig()
	hcCfg.Timeout = cfg.Transfer.HTTPTimeout
	hcCfg.Logger = logger
	client := httpclient.New(hcCfg)

	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		downloader: transfer.NewDownloader(client, logger),
		prober:     media.NewProber(cfg.Tools.FFprobePath),
		encoder:    media.NewEncoder(cfg.Tools.FFmpegPath, logger),
		thumbs:     media.NewThumbnailExtractor(cfg.Tools.FFmpegPath, logger),
		packager:   media.NewPackager(cfg.Tools.PackagerPath, logger),
	}
	r.newUploader = func(ctx context.Context, target models.S3Target) (uploader, error) {
		pool := transfer.NewPool(cfg.Transfer.UploadConcurrency, cfg.Queue.MaxRetry, logger)
		return transfer.NewUploader(ctx, target, pool, logger)
	}
	return r
}

// preparedSubtitle is a normalized WebVTT file ready for packaging.
type preparedSubtitle struct {
	Path     string
	Language string
	Name     string // unique bundle name, language plus collision prefix
}

// encodedAudio is one finished audio rendition.
type encodedAudio struct {
	Path     string
	Language string
	Title    string
	Name     string
}

// encodedVideo is one finished video rendition.
type encodedVideo struct {
	Path    string
	Quality models.Quality
}

// Run converts one request end to end and returns the output metadata. The
// working directory is removed before Run returns, success or not.
func (r *Runner) Run(ctx context.Context, req *models.ConversionRequest) (*models.OutputMetadata, error) {
	req.Normalize()

	work, err := storage.NewWorkDir(r.cfg.Storage.TempDir)
	if err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}
	defer func() {
		if err := work.Remove(); err != nil {
			r.logger.Warn("working directory cleanup failed",
				slog.String("dir", work.Root),
				slog.String("error", err.Error()),
			)
		}
	}()

	logger := r.logger.With(slog.String("workdir_token", work.Token))

	// Downloads: the source is mandatory, subtitles are best effort.
	sourcePath, subtitleFiles, err := r.download(ctx, work, req, logger)
	if err != nil {
		return nil, err
	}

	// The extension on the source URL is advisory at best. Rename from
	// sniffed content so the tools see a truthful name.
	sourcePath, err = renameBySniff(sourcePath, logger)
	if err != nil {
		return nil, err
	}

	probe, err := r.prober.Probe(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("probing source: %w", err)
	}

	ref, err := probe.ReferenceStream()
	if err != nil {
		return nil, err
	}

	qualities := FilterQualities(req.Qualities, ref.Height)
	if len(qualities) == 0 {
		return nil, fmt.Errorf("no requested quality at or below source height %d", ref.Height)
	}

	logger.Info("source analyzed",
		slog.Int("reference_height", ref.Height),
		slog.Int("qualities", len(qualities)),
		slog.Int("audio_tracks", len(probe.AudioStreams())),
		slog.Float64("duration_sec", probe.DurationSec()),
	)

	videos, audios, subs, err := r.encodeAll(ctx, work, sourcePath, ref, probe, qualities, req, subtitleFiles, logger)
	if err != nil {
		return nil, err
	}

	bundleDir, err := work.Sub("bundle")
	if err != nil {
		return nil, fmt.Errorf("creating bundle directory: %w", err)
	}

	if err := r.packageBundle(ctx, bundleDir, req, videos, audios, subs); err != nil {
		return nil, err
	}

	if err := r.addThumbnails(ctx, sourcePath, bundleDir, ref); err != nil {
		return nil, err
	}

	up, err := r.newUploader(ctx, req.S3)
	if err != nil {
		return nil, fmt.Errorf("building uploader: %w", err)
	}

	if _, err := up.UploadDir(ctx, bundleDir); err != nil {
		return nil, fmt.Errorf("uploading bundle: %w", err)
	}

	extraKeys, err := r.uploadExtras(ctx, up, req, videos, audios)
	if err != nil {
		return nil, err
	}

	meta := &models.OutputMetadata{
		DurationSec:     probe.DurationSec(),
		Qualities:       qualities,
		ExtraUploadKeys: extraKeys,
	}
	for _, a := range audios {
		meta.AudioTracks = append(meta.AudioTracks, models.AudioTrackMeta{
			Language: a.Language,
			Title:    a.Title,
		})
	}
	return meta, nil
}

// download fetches the source and all subtitle files through the bounded
// download pool. A failed subtitle download is logged and dropped; a failed
// source download fails the job.
func (r *Runner) download(ctx context.Context, work *storage.WorkDir, req *models.ConversionRequest, logger *slog.Logger) (string, map[int]string, error) {
	dlDir, err := work.Sub("download")
	if err != nil {
		return "", nil, fmt.Errorf("creating download directory: %w", err)
	}

	sourcePath := filepath.Join(dlDir, "source.bin")
	tasks := []transfer.Task{{
		Name: "source",
		Run: func(ctx context.Context) error {
			return r.downloader.Fetch(ctx, req.Source, sourcePath)
		},
	}}

	var mu sync.Mutex
	subtitleFiles := make(map[int]string)

	for i, sub := range req.Subtitles {
		i, sub := i, sub
		dest := filepath.Join(dlDir, fmt.Sprintf("sub_%d", i))
		tasks = append(tasks, transfer.Task{
			Name: fmt.Sprintf("subtitle[%d]", i),
			Run: func(ctx context.Context) error {
				if err := r.downloader.Fetch(ctx, sub.URL, dest); err != nil {
					logger.Warn("subtitle download failed, skipping track",
						slog.String("url", sub.URL),
						slog.String("language", sub.Language),
						slog.String("error", err.Error()),
					)
					return nil
				}
				mu.Lock()
				subtitleFiles[i] = dest
				mu.Unlock()
				return nil
			},
		})
	}

	pool := transfer.NewPool(r.cfg.Transfer.DownloadConcurrency, r.cfg.Queue.MaxRetry, logger)
	if err := pool.Run(ctx, tasks); err != nil {
		return "", nil, fmt.Errorf("downloading source: %w", err)
	}
	return sourcePath, subtitleFiles, nil
}

// renameBySniff renames the downloaded file to carry its detected container
// extension. Unknown content keeps a warning and an mp4 fallback name.
func renameBySniff(path string, logger *slog.Logger) (string, error) {
	c, ok, err := media.DetectContainer(path)
	if err != nil {
		return "", err
	}

	ext := c.Ext
	if !ok {
		logger.Warn("container not recognized, assuming mp4")
		ext = "mp4"
	}

	renamed := path[:len(path)-len(filepath.Ext(path))] + "." + ext
	if renamed == path {
		return path, nil
	}
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("renaming source: %w", err)
	}
	return renamed, nil
}

// FilterQualities keeps renditions at or below the reference height, so the
// bundle never upscales. The operation is idempotent.
func FilterQualities(qualities []models.Quality, refHeight int) []models.Quality {
	var out []models.Quality
	for _, q := range qualities {
		if q.Height <= refHeight {
			out = append(out, q)
		}
	}
	return out
}
