package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWideEvent(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)

	ctx, event := NewEventContext(context.Background())
	AddToEvent(ctx, slog.String("operation", "login_face"))
	AddToEvent(ctx, slog.Bool("face_verified", true))

	Get().InfoContext(ctx, "request completed", event.Attrs()...)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if entry["operation"] != "login_face" {
		t.Errorf("expected operation attr, got %v", entry["operation"])
	}
	if entry["face_verified"] != true {
		t.Errorf("expected face_verified attr, got %v", entry["face_verified"])
	}
	if entry["service"] != "faceauth-api" {
		t.Errorf("expected service attr, got %v", entry["service"])
	}
}

func TestAddToEventWithoutEvent(t *testing.T) {
	// Must be a no-op outside a request.
	AddToEvent(context.Background(), slog.String("k", "v"))
	if EventFromContext(context.Background()) != nil {
		t.Error("expected no event in empty context")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
