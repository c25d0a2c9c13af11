package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vodforge/vodforge/internal/media"
	"github.com/vodforge/vodforge/internal/models"
)

// hlsSegmentDuration is the target segment length in seconds.
const hlsSegmentDuration = 6

// buildDescriptors lays out the bundle: video renditions by height, audio
// tracks under audio/ by language name, subtitles under subtitles/.
func buildDescriptors(videos []encodedVideo, audios []encodedAudio, subs []preparedSubtitle) []media.StreamDescriptor {
	var descriptors []media.StreamDescriptor

	for _, v := range videos {
		dir := fmt.Sprintf("%d", v.Quality.Height)
		descriptors = append(descriptors, media.StreamDescriptor{
			In:              v.Path,
			Stream:          "video",
			SegmentTemplate: dir + "/seg_$Number$.ts",
			PlaylistName:    dir + "/playlist.m3u8",
		})
	}

	for _, a := range audios {
		name := a.Title
		if name == "" {
			name = a.Name
		}
		dir := "audio/" + a.Name
		descriptors = append(descriptors, media.StreamDescriptor{
			In:              a.Path,
			Stream:          "audio",
			SegmentTemplate: dir + "/seg_$Number$.ts",
			PlaylistName:    dir + "/playlist.m3u8",
			GroupID:         "audio",
			Name:            name,
			Language:        a.Language,
		})
	}

	for _, s := range subs {
		dir := "subtitles/" + s.Name
		descriptors = append(descriptors, media.StreamDescriptor{
			In:              s.Path,
			Stream:          "text",
			SegmentTemplate: dir + "/seg_$Number$.vtt",
			PlaylistName:    dir + "/playlist.m3u8",
			GroupID:         "text",
			Name:            s.Name,
			Language:        s.Language,
		})
	}

	return descriptors
}

// packageBundle runs shaka packager once over every stream and validates the
// master playlist.
func (r *Runner) packageBundle(ctx context.Context, bundleDir string, req *models.ConversionRequest, videos []encodedVideo, audios []encodedAudio, subs []preparedSubtitle) error {
	job := media.PackageJob{
		Descriptors:      buildDescriptors(videos, audios, subs),
		WorkDir:          bundleDir,
		DefaultAudioLang: req.DefaultAudioLang,
		SegmentDuration:  hlsSegmentDuration,
	}
	if err := r.packager.Package(ctx, job); err != nil {
		return fmt.Errorf("packaging bundle: %w", err)
	}
	return nil
}

// addThumbnails extracts the thumbnail track into the bundle and advertises
// it from the master playlist.
func (r *Runner) addThumbnails(ctx context.Context, sourcePath, bundleDir string, ref media.ProbeStream) error {
	interval := r.cfg.Tools.ThumbnailInterval
	thumbsDir := filepath.Join(bundleDir, "thumbnails")

	names, err := r.thumbs.Extract(ctx, sourcePath, thumbsDir, interval)
	if err != nil {
		return fmt.Errorf("extracting thumbnails: %w", err)
	}

	if err := media.WriteThumbnailPlaylist(thumbsDir, names, interval); err != nil {
		return err
	}

	master := filepath.Join(bundleDir, media.MasterPlaylistName)
	uri := "thumbnails/" + media.ThumbnailPlaylistName
	if err := media.AppendImageStream(master, uri, ref.Width, ref.Height); err != nil {
		return err
	}
	return nil
}

// uploadExtras pushes the raw encodes next to the bundle when the request
// asks for them, and returns the uploaded object keys sorted.
func (r *Runner) uploadExtras(ctx context.Context, up uploader, req *models.ConversionRequest, videos []encodedVideo, audios []encodedAudio) ([]string, error) {
	items := make(map[string]string)

	if req.HasExtraUpload(models.ExtraUploadEncodedAudios) {
		for _, a := range audios {
			key := up.Key(a.Name + "/encoded_audio" + filepath.Ext(a.Path))
			items[key] = a.Path
		}
	}
	if req.HasExtraUpload(models.ExtraUploadEncodedVideos) {
		for _, v := range videos {
			key := up.Key(fmt.Sprintf("%d/encoded_video%s", v.Quality.Height, filepath.Ext(v.Path)))
			items[key] = v.Path
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	if err := up.UploadMany(ctx, items); err != nil {
		return nil, fmt.Errorf("uploading extra encodes: %w", err)
	}

	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
