package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDescriptorRender(t *testing.T) {
	d := StreamDescriptor{
		In:              "720/encoded_video.mp4",
		Stream:          "video",
		SegmentTemplate: "720/seg_$Number$.ts",
		PlaylistName:    "720/playlist.m3u8",
	}
	assert.Equal(t,
		"in=720/encoded_video.mp4,stream=video,segment_template=720/seg_$Number$.ts,playlist_name=720/playlist.m3u8",
		d.render(),
	)

	d = StreamDescriptor{
		In:              "audio/en/encoded_audio.aac",
		Stream:          "audio",
		SegmentTemplate: "audio/en/seg_$Number$.ts",
		PlaylistName:    "audio/en/playlist.m3u8",
		GroupID:         "audio",
		Name:            "en",
		Language:        "en",
	}
	assert.Equal(t,
		"in=audio/en/encoded_audio.aac,stream=audio,segment_template=audio/en/seg_$Number$.ts,"+
			"playlist_name=audio/en/playlist.m3u8,hls_group_id=audio,hls_name=en,language=en",
		d.render(),
	)
}

func TestMatchDefaultLanguage(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		available []string
		want      string
		ok        bool
	}{
		{"exact", "en", []string{"en", "pt"}, "en", true},
		{"primary subtag", "pt-BR", []string{"en", "pt"}, "pt", true},
		{"region on available", "en", []string{"en-US"}, "en-US", true},
		{"no match", "fr", []string{"en", "pt"}, "", false},
		{"und skipped", "und", []string{"en"}, "", false},
		{"empty", "", []string{"en"}, "", false},
		{"garbage", "!!", []string{"en"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchDefaultLanguage(tt.requested, tt.available)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

const sampleMaster = `#EXTM3U
#EXT-X-VERSION:7
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720,CODECS="avc1.64001f,mp4a.40.2"
720/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=854x480,CODECS="avc1.64001e,mp4a.40.2"
480/playlist.m3u8
`

func TestValidateMasterPlaylist(t *testing.T) {
	path := filepath.Join(t.TempDir(), MasterPlaylistName)
	require.NoError(t, os.WriteFile(path, []byte(sampleMaster), 0o644))

	require.NoError(t, ValidateMasterPlaylist(path))
}

func TestValidateMasterPlaylistRejectsMedia(t *testing.T) {
	media := "#EXTM3U\n#EXT-X-VERSION:7\n#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nseg_1.ts\n#EXT-X-ENDLIST\n"
	path := filepath.Join(t.TempDir(), MasterPlaylistName)
	require.NoError(t, os.WriteFile(path, []byte(media), 0o644))

	err := ValidateMasterPlaylist(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not multivariant")
}

func TestValidateMasterPlaylistRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), MasterPlaylistName)
	require.NoError(t, os.WriteFile(path, []byte("not a playlist"), 0o644))

	require.Error(t, ValidateMasterPlaylist(path))
}

func TestAppendImageStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), MasterPlaylistName)
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSuffix(sampleMaster, "\n")), 0o644))

	require.NoError(t, AppendImageStream(path, ThumbnailPlaylistName, 1280, 720))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`#EXT-X-IMAGE-STREAM-INF:BANDWIDTH=100000,CODECS="jpeg",RESOLUTION=1280x720,URI="thumbnails.m3u8"`)

	// The playlist must still parse after the tag is appended.
	require.NoError(t, ValidateMasterPlaylist(path))
}

func TestWriteThumbnailPlaylist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteThumbnailPlaylist(dir, []string{"thumb_0001.jpg", "thumb_0002.jpg"}, 5))

	data, err := os.ReadFile(filepath.Join(dir, ThumbnailPlaylistName))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "#EXT-X-IMAGES-ONLY")
	assert.Contains(t, content, "#EXTINF:5.0,\nthumb_0001.jpg")
	assert.Contains(t, content, "#EXT-X-ENDLIST")
}
