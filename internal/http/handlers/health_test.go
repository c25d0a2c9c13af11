package handlers

import (
	"context"
	"errors"
	"testing"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestGetHealth(t *testing.T) {
	handler := NewHealthHandler("1.2.3", &stubPinger{})

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	if err != nil {
		t.Fatalf("GetHealth returned error: %v", err)
	}

	if output.Body.Status != "ok" {
		t.Errorf("expected status ok, got %q", output.Body.Status)
	}
	if output.Body.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", output.Body.Version)
	}
	if output.Body.Database != "ok" {
		t.Errorf("expected database ok, got %q", output.Body.Database)
	}
	if output.Body.UptimeS < 0 {
		t.Errorf("expected non-negative uptime, got %d", output.Body.UptimeS)
	}
}

func TestGetHealthDegradedDatabase(t *testing.T) {
	handler := NewHealthHandler("1.2.3", &stubPinger{err: errors.New("database is locked")})

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	if err != nil {
		t.Fatalf("GetHealth returned error: %v", err)
	}

	if output.Body.Status != "degraded" {
		t.Errorf("expected status degraded, got %q", output.Body.Status)
	}
	if output.Body.Database != "database is locked" {
		t.Errorf("expected database error message, got %q", output.Body.Database)
	}
}

func TestGetHealthWithoutDatabase(t *testing.T) {
	handler := NewHealthHandler("dev", nil)

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	if err != nil {
		t.Fatalf("GetHealth returned error: %v", err)
	}
	if output.Body.Status != "ok" {
		t.Errorf("expected status ok, got %q", output.Body.Status)
	}
}
