package subtitle

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const sampleSRT = "7\r\n" +
	"00:00:01,000 --> 00:00:04,200\r\n" +
	"First line\r\n" +
	"Second line\r\n" +
	"\r\n" +
	"9\r\n" +
	"00:00:05,500 --> 00:00:08,000\r\n" +
	"Next cue\r\n" +
	"\r\n"

const wantVTT = "WEBVTT\n" +
	"\n" +
	"1\n" +
	"00:00:01.000 --> 00:00:04.200\n" +
	"First line\n" +
	"Second line\n" +
	"\n" +
	"2\n" +
	"00:00:05.500 --> 00:00:08.000\n" +
	"Next cue\n" +
	"\n"

func TestConvertSRT(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, ConvertSRT(strings.NewReader(sampleSRT), &out))
	assert.Equal(t, wantVTT, out.String())
}

func TestConvertSRTRenumbersFromOne(t *testing.T) {
	in := "42\n00:01:00,000 --> 00:01:02,000\nHello\n"
	var out bytes.Buffer
	require.NoError(t, ConvertSRT(strings.NewReader(in), &out))

	assert.Contains(t, out.String(), "1\n00:01:00.000 --> 00:01:02.000\n")
	assert.NotContains(t, out.String(), "42")
}

func TestConvertSRTKeepsCueSettings(t *testing.T) {
	in := "1\n00:00:01,000 --> 00:00:02,000 X1:100 X2:200\nPositioned\n"
	var out bytes.Buffer
	require.NoError(t, ConvertSRT(strings.NewReader(in), &out))
	assert.Contains(t, out.String(), "00:00:01.000 --> 00:00:02.000 X1:100 X2:200\n")
}

func TestConvertSRTStripsBOM(t *testing.T) {
	in := "\uFEFF1\n00:00:01,000 --> 00:00:02,000\nText\n"
	var out bytes.Buffer
	require.NoError(t, ConvertSRT(strings.NewReader(in), &out))
	assert.True(t, strings.HasPrefix(out.String(), "WEBVTT\n"))
	assert.Contains(t, out.String(), "Text\n")
}

func TestFromFileVTTPassthrough(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	dst := filepath.Join(dir, "out.vtt")

	content := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nAlready vtt\n"
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))

	require.NoError(t, FromFile(src, "https://cdn.example.com/subs/en.vtt?sig=abc", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestFromFileSRTConversion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	dst := filepath.Join(dir, "out.vtt")
	require.NoError(t, os.WriteFile(src, []byte(sampleSRT), 0o644))

	require.NoError(t, FromFile(src, "https://cdn.example.com/subs/en.srt", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, wantVTT, string(got))
}

func TestFromFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := FromFile(src, "https://cdn.example.com/subs/en.sub", filepath.Join(dir, "out.vtt"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFromFileZipArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	dst := filepath.Join(dir, "out.vtt")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	readme, err := zw.Create("readme.txt")
	require.NoError(t, err)
	readme.Write([]byte("ignore me"))
	entry, err := zw.Create("movie.en.srt")
	require.NoError(t, err)
	entry.Write([]byte(sampleSRT))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	require.NoError(t, FromFile(src, "https://cdn.example.com/subs/en.zip", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, wantVTT, string(got))
}

func TestFromFileZipWithoutSubtitle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("notes.txt")
	require.NoError(t, err)
	entry.Write([]byte("nothing here"))
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	err = FromFile(src, "https://cdn.example.com/subs/en.zip", filepath.Join(dir, "out.vtt"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFromFileGzipStream(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	dst := filepath.Join(dir, "out.vtt")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(sampleSRT))
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	require.NoError(t, FromFile(src, "https://cdn.example.com/subs/en.srt.gz", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, wantVTT, string(got))
}

func TestFromFileXZStream(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	dst := filepath.Join(dir, "out.vtt")

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	xw.Write([]byte(sampleSRT))
	require.NoError(t, xw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	require.NoError(t, FromFile(src, "https://cdn.example.com/subs/en.srt.xz", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, wantVTT, string(got))
}

func TestFromFileCompressedUnknownInner(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "downloaded")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := FromFile(src, "https://cdn.example.com/subs/en.sub.gz", filepath.Join(dir, "out.vtt"))
	assert.ErrorIs(t, err, ErrUnsupported)
}
