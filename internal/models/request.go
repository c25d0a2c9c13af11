package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtraUpload selects an additional raw-encode upload alongside the packaged
// bundle. The set of recognized values is closed; anything else is rejected
// at validation time.
type ExtraUpload string

const (
	// ExtraUploadEncodedAudios uploads each raw per-track audio encode.
	ExtraUploadEncodedAudios ExtraUpload = "ENCODED_AUDIOS"
	// ExtraUploadEncodedVideos uploads each raw per-quality video encode.
	ExtraUploadEncodedVideos ExtraUpload = "ENCODED_VIDEOS"
)

// Valid reports whether the value is one of the recognized extra uploads.
func (e ExtraUpload) Valid() bool {
	return e == ExtraUploadEncodedAudios || e == ExtraUploadEncodedVideos
}

// Quality is one requested output rendition.
type Quality struct {
	// Height is the target frame height in pixels. Never upscaled beyond the
	// source height.
	Height int `json:"height"`
	// Bitrate is the target video bitrate in kbit/s.
	Bitrate int `json:"bitrate"`
}

// SubtitleSource is one externally supplied subtitle to normalize and mux.
type SubtitleSource struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

// S3Target describes the destination object-storage location.
type S3Target struct {
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId" masq:"secret"`
	SecretAccessKey string `json:"secretAccessKey" masq:"secret"`
	// Path is the key prefix under which the bundle is uploaded.
	Path string `json:"path"`
	// Endpoint overrides the service endpoint for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty"`
	// ACL is an optional canned ACL applied to every uploaded object.
	ACL string `json:"acl,omitempty"`
}

// ConversionRequest is the ephemeral description of one conversion job. It is
// created at the submission boundary, handed to exactly one pipeline
// execution via a temporary file, and discarded after completion.
type ConversionRequest struct {
	Source           string           `json:"source"`
	DefaultAudioLang string           `json:"defaultAudioLang,omitempty"`
	Qualities        []Quality        `json:"qualities"`
	Subtitles        []SubtitleSource `json:"subtitles,omitempty"`
	S3               S3Target         `json:"s3"`
	ExtraUploads     []ExtraUpload    `json:"extraUploads,omitempty"`
	CallbackURL      string           `json:"callbackUrl,omitempty"`

	// JobID is set only on the retry path to reuse an existing job row.
	JobID *uint `json:"jobId,omitempty"`
	// Attempt counts resubmissions of the same job id; bounded by the retry
	// ceiling.
	Attempt int `json:"attempt,omitempty"`
}

// Normalize fills defaulted fields in place.
func (r *ConversionRequest) Normalize() {
	if r.DefaultAudioLang == "" {
		r.DefaultAudioLang = "und"
	}
	if r.Subtitles == nil {
		r.Subtitles = []SubtitleSource{}
	}
}

// Validate checks required fields and returns an error naming the first
// missing or invalid field, mirroring the submission contract.
func (r *ConversionRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("source is required")
	}
	if _, err := url.ParseRequestURI(r.Source); err != nil {
		return fmt.Errorf("source must be a valid URL")
	}
	if len(r.Qualities) == 0 {
		return fmt.Errorf("qualities must be a non-empty array")
	}
	for i, q := range r.Qualities {
		if q.Height <= 0 {
			return fmt.Errorf("qualities[%d].height must be a positive number", i)
		}
		if q.Bitrate <= 0 {
			return fmt.Errorf("qualities[%d].bitrate must be a positive number", i)
		}
	}
	if r.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	if r.S3.Region == "" {
		return fmt.Errorf("s3.region is required")
	}
	if r.S3.AccessKeyID == "" {
		return fmt.Errorf("s3.accessKeyId is required")
	}
	if r.S3.SecretAccessKey == "" {
		return fmt.Errorf("s3.secretAccessKey is required")
	}
	if r.S3.Path == "" {
		return fmt.Errorf("s3.path is required")
	}
	for i, s := range r.Subtitles {
		if s.URL == "" {
			return fmt.Errorf("subtitles[%d].url is required", i)
		}
		if s.Language == "" {
			return fmt.Errorf("subtitles[%d].language is required", i)
		}
	}
	for i, e := range r.ExtraUploads {
		if !e.Valid() {
			return fmt.Errorf("extraUploads[%d] must be one of: ENCODED_AUDIOS, ENCODED_VIDEOS", i)
		}
	}
	return nil
}

// HasExtraUpload reports whether the request asks for the given extra upload.
func (r *ConversionRequest) HasExtraUpload(e ExtraUpload) bool {
	for _, u := range r.ExtraUploads {
		if u == e {
			return true
		}
	}
	return false
}

// AudioTrackMeta describes one produced audio track.
type AudioTrackMeta struct {
	Language string `json:"language"`
	Title    string `json:"title,omitempty"`
}

// OutputMetadata is produced once per successful pipeline run and echoed to
// the success callback.
type OutputMetadata struct {
	DurationSec     float64          `json:"durationSec"`
	AudioTracks     []AudioTrackMeta `json:"audioTracks"`
	Qualities       []Quality        `json:"qualities"`
	ExtraUploadKeys []string         `json:"extraUploadKeys,omitempty"`
}
