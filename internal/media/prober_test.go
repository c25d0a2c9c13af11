package media

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProbeJSON = `{
	"format": {
		"format_name": "mov,mp4,m4a,3gp,3g2,mj2",
		"duration": "734.500000",
		"nb_streams": 4
	},
	"streams": [
		{"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "bit_rate": "4500000"},
		{"index": 1, "codec_type": "video", "codec_name": "mjpeg", "width": 600, "height": 4000, "disposition": {"attached_pic": 1}},
		{"index": 2, "codec_type": "audio", "codec_name": "aac", "channels": 2, "bit_rate": "192000", "tags": {"language": "eng"}},
		{"index": 3, "codec_type": "audio", "codec_name": "ac3", "channels": 6, "tags": {"language": "por"}}
	]
}`

func parseProbe(t *testing.T) *ProbeResult {
	t.Helper()
	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(sampleProbeJSON), &result))
	return &result
}

func TestProbeResultDuration(t *testing.T) {
	result := parseProbe(t)
	assert.InDelta(t, 734.5, result.DurationSec(), 0.001)
}

func TestVideoStreamsSkipStillImages(t *testing.T) {
	result := parseProbe(t)
	videos := result.VideoStreams()
	require.Len(t, videos, 1)
	assert.Equal(t, "h264", videos[0].CodecName)
}

func TestReferenceStreamPicksTallest(t *testing.T) {
	result := &ProbeResult{Streams: []ProbeStream{
		{Index: 0, CodecType: "video", CodecName: "h264", Height: 720},
		{Index: 1, CodecType: "video", CodecName: "h264", Height: 1080},
		{Index: 2, CodecType: "video", CodecName: "h264", Height: 480},
	}}

	ref, err := result.ReferenceStream()
	require.NoError(t, err)
	assert.Equal(t, 1, ref.Index)
}

func TestReferenceStreamTieKeepsFirst(t *testing.T) {
	result := &ProbeResult{Streams: []ProbeStream{
		{Index: 0, CodecType: "video", CodecName: "h264", Height: 1080},
		{Index: 1, CodecType: "video", CodecName: "hevc", Height: 1080},
	}}

	ref, err := result.ReferenceStream()
	require.NoError(t, err)
	assert.Equal(t, 0, ref.Index)
}

func TestReferenceStreamNoVideo(t *testing.T) {
	result := &ProbeResult{Streams: []ProbeStream{
		{Index: 0, CodecType: "audio", CodecName: "aac"},
		{Index: 1, CodecType: "video", CodecName: "mjpeg", Height: 4000},
	}}

	_, err := result.ReferenceStream()
	assert.ErrorIs(t, err, ErrNoVideoStream)
}

func TestAudioStreamMetadata(t *testing.T) {
	result := parseProbe(t)
	audios := result.AudioStreams()
	require.Len(t, audios, 2)

	assert.Equal(t, "eng", audios[0].Language())
	assert.Equal(t, 192000, audios[0].BitRateBPS())
	assert.Equal(t, "por", audios[1].Language())
	assert.Equal(t, 0, audios[1].BitRateBPS())
}

func TestStreamLanguageDefaultsToUnd(t *testing.T) {
	s := ProbeStream{}
	assert.Equal(t, "und", s.Language())
}
