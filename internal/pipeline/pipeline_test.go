package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
)

func TestFilterQualities(t *testing.T) {
	qualities := []models.Quality{
		{Height: 1080, Bitrate: 4500},
		{Height: 720, Bitrate: 2500},
		{Height: 480, Bitrate: 1200},
	}

	assert.Len(t, FilterQualities(qualities, 1080), 3)
	assert.Equal(t, []models.Quality{
		{Height: 720, Bitrate: 2500},
		{Height: 480, Bitrate: 1200},
	}, FilterQualities(qualities, 720))
	assert.Empty(t, FilterQualities(qualities, 360))

	// Idempotent: filtering an already filtered set changes nothing.
	once := FilterQualities(qualities, 720)
	assert.Equal(t, once, FilterQualities(once, 720))
}

func TestUniqueNames(t *testing.T) {
	assert.Equal(t, []string{"en", "pt", "es"}, uniqueNames([]string{"en", "pt", "es"}))
	assert.Equal(t, []string{"en", "1_en", "pt", "2_en"}, uniqueNames([]string{"en", "en", "pt", "en"}))
	assert.Empty(t, uniqueNames(nil))
}

func TestBuildDescriptors(t *testing.T) {
	videos := []encodedVideo{
		{Path: "/w/encode/720/encoded_video.mp4", Quality: models.Quality{Height: 720, Bitrate: 2500}},
	}
	audios := []encodedAudio{
		{Path: "/w/encode/audio/en/encoded_audio.aac", Language: "en", Name: "en"},
		{Path: "/w/encode/audio/pt/encoded_audio.aac", Language: "pt", Title: "Dublado", Name: "pt"},
	}
	subs := []preparedSubtitle{
		{Path: "/w/encode/subtitles/en.vtt", Language: "en", Name: "en"},
	}

	descriptors := buildDescriptors(videos, audios, subs)
	require.Len(t, descriptors, 4)

	assert.Equal(t, "video", descriptors[0].Stream)
	assert.Equal(t, "720/seg_$Number$.ts", descriptors[0].SegmentTemplate)
	assert.Equal(t, "720/playlist.m3u8", descriptors[0].PlaylistName)
	assert.Empty(t, descriptors[0].GroupID)

	assert.Equal(t, "audio", descriptors[1].Stream)
	assert.Equal(t, "audio", descriptors[1].GroupID)
	assert.Equal(t, "en", descriptors[1].Name)
	assert.Equal(t, "audio/en/playlist.m3u8", descriptors[1].PlaylistName)

	// Titled tracks surface the title as the rendition name.
	assert.Equal(t, "Dublado", descriptors[2].Name)
	assert.Equal(t, "pt", descriptors[2].Language)

	assert.Equal(t, "text", descriptors[3].Stream)
	assert.Equal(t, "subtitles/en/seg_$Number$.vtt", descriptors[3].SegmentTemplate)
}

type fakeUploader struct {
	prefix   string
	uploaded map[string]string
}

func (f *fakeUploader) UploadDir(ctx context.Context, localRoot string) ([]string, error) {
	return nil, nil
}

func (f *fakeUploader) UploadMany(ctx context.Context, items map[string]string) error {
	if f.uploaded == nil {
		f.uploaded = make(map[string]string)
	}
	for k, v := range items {
		f.uploaded[k] = v
	}
	return nil
}

func (f *fakeUploader) Key(rel string) string {
	return f.prefix + "/" + rel
}

func testRunner() *Runner {
	cfg := config.Default()
	return &Runner{cfg: cfg, logger: slog.Default()}
}

func TestUploadExtras(t *testing.T) {
	r := testRunner()
	up := &fakeUploader{prefix: "assets/movie-1"}

	videos := []encodedVideo{
		{Path: "/w/encode/720/encoded_video.mp4", Quality: models.Quality{Height: 720, Bitrate: 2500}},
	}
	audios := []encodedAudio{
		{Path: "/w/encode/audio/en/encoded_audio.aac", Language: "en", Name: "en"},
	}

	req := &models.ConversionRequest{
		ExtraUploads: []models.ExtraUpload{models.ExtraUploadEncodedAudios, models.ExtraUploadEncodedVideos},
	}

	keys, err := r.uploadExtras(context.Background(), up, req, videos, audios)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"assets/movie-1/720/encoded_video.mp4",
		"assets/movie-1/en/encoded_audio.aac",
	}, keys)
	assert.Equal(t, "/w/encode/audio/en/encoded_audio.aac", up.uploaded["assets/movie-1/en/encoded_audio.aac"])
}

func TestUploadExtrasNoneRequested(t *testing.T) {
	r := testRunner()
	up := &fakeUploader{prefix: "p"}

	keys, err := r.uploadExtras(context.Background(), up, &models.ConversionRequest{}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, up.uploaded)
}

func TestRenameBySniff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.bin")

	header := []byte{0x00, 0x00, 0x00, 0x20}
	header = append(header, []byte("ftypisom")...)
	header = append(header, make([]byte, 16)...)
	require.NoError(t, os.WriteFile(path, header, 0o644))

	renamed, err := renameBySniff(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.mp4"), renamed)
	assert.FileExists(t, renamed)
	assert.NoFileExists(t, path)
}

func TestRenameBySniffUnknownFallsBackToMP4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.bin")
	require.NoError(t, os.WriteFile(path, []byte("mystery bytes"), 0o644))

	renamed, err := renameBySniff(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source.mp4"), renamed)
}
