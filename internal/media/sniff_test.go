package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mp4Header(brand string) []byte {
	buf := []byte{0x00, 0x00, 0x00, 0x20}
	buf = append(buf, []byte("ftyp")...)
	buf = append(buf, []byte(brand)...)
	return append(buf, make([]byte, 16)...)
}

func tsHeader() []byte {
	buf := make([]byte, 189)
	buf[0] = 0x47
	buf[188] = 0x47
	return buf
}

func TestSniffContainer(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Container
		ok   bool
	}{
		{"mp4", mp4Header("isom"), ContainerMP4, true},
		{"mov", mp4Header("qt  "), ContainerMOV, true},
		{"matroska", append([]byte{0x1A, 0x45, 0xDF, 0xA3}, []byte("matroska")...), ContainerMatroska, true},
		{"webm", append([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x42}, []byte("webm")...), ContainerWebM, true},
		{"avi", append([]byte("RIFF\x00\x00\x00\x00AVI "), make([]byte, 8)...), ContainerAVI, true},
		{"mpegts", tsHeader(), ContainerMPEGTS, true},
		{"flv", []byte("FLV\x01"), ContainerFLV, true},
		{"unknown", []byte("plain text, definitely not media"), Container{}, false},
		{"empty", nil, Container{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sniffContainer(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectContainerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	require.NoError(t, os.WriteFile(path, mp4Header("mp42"), 0o644))

	c, ok, err := DetectContainer(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mp4", c.Ext)
}

func TestDetectContainerMissingFile(t *testing.T) {
	_, _, err := DetectContainer(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
