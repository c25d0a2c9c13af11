package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	logger.Info("test message", slog.String("key", "value"))

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, `"key":"value"`)

	// Verify it's valid JSON
	var parsed map[string]any
	err := json.Unmarshal([]byte(output), &parsed)
	require.NoError(t, err)
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "text",
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	logger.Info("test message", slog.String("key", "value"))

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name        string
		configLevel string
		logLevel    slog.Level
		shouldLog   bool
	}{
		{"debug logs at debug level", "debug", slog.LevelDebug, true},
		{"debug suppressed at info level", "info", slog.LevelDebug, false},
		{"info logs at info level", "info", slog.LevelInfo, true},
		{"info suppressed at warn level", "warn", slog.LevelInfo, false},
		{"error logs at error level", "error", slog.LevelError, true},
		{"unknown level falls back to info", "chatty", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := config.LoggingConfig{Level: tt.configLevel, Format: "json"}

			logger := NewLoggerWithWriter(cfg, &buf)
			logger.Log(context.Background(), tt.logLevel, "probe")

			if tt.shouldLog {
				assert.Contains(t, buf.String(), "probe")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestNewLogger_RedactsStorageSecrets(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "info", Format: "json"}

	logger := NewLoggerWithWriter(cfg, &buf)

	target := models.S3Target{
		Bucket:          "vod",
		Region:          "us-east-1",
		AccessKeyID:     "AKIASECRETKEYID",
		SecretAccessKey: "super-secret-value",
		Path:            "assets/movie-1",
	}
	logger.Info("uploading bundle", slog.Any("target", target))

	output := buf.String()
	assert.NotContains(t, output, "super-secret-value")
	assert.NotContains(t, output, "AKIASECRETKEYID")
	assert.Contains(t, output, "vod")
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{Level: "info", Format: "json"}

	logger := NewLoggerWithWriter(cfg, &buf)

	WithComponent(logger, "queue").Info("one")
	assert.Contains(t, buf.String(), `"component":"queue"`)

	buf.Reset()
	WithJobID(logger, 7).Info("two")
	assert.Contains(t, buf.String(), `"job_id":7`)

	buf.Reset()
	WithError(logger, errors.New("boom")).Info("three")
	assert.Contains(t, buf.String(), `"error":"boom"`)

	buf.Reset()
	WithError(logger, nil).Info("four")
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx := ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, LoggerFromContext(ctx))

	// Falls back to the default when absent.
	assert.NotNil(t, LoggerFromContext(context.Background()))
}

func TestReporter_PostsFailure(t *testing.T) {
	var mu sync.Mutex
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		received = payload
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	reporter := NewReporter(config.TelemetryConfig{Enabled: true, SinkURL: server.URL}, nil)
	reporter.ReportJobFailure(context.Background(), 42, errors.New("encode failed"))

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "vodforge", received["application"])
	assert.Equal(t, float64(42), received["job_id"])
	assert.Equal(t, "encode failed", received["message"])
}

func TestReporter_DisabledIsNoop(t *testing.T) {
	var hits int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	reporter := NewReporter(config.TelemetryConfig{Enabled: false, SinkURL: server.URL}, nil)
	reporter.ReportJobFailure(context.Background(), 1, errors.New("encode failed"))

	reporter = NewReporter(config.TelemetryConfig{Enabled: true, SinkURL: server.URL}, nil)
	reporter.ReportJobFailure(context.Background(), 1, nil)

	assert.Zero(t, hits)
}
