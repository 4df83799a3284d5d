package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler            { return h }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func TestGetLogType(t *testing.T) {
	tests := []struct {
		name     string
		typeAttr string
		want     LogType
	}{
		{"command", "cmd", TypeCommand},
		{"database", "db", TypeDB},
		{"error", "error", TypeError},
		{"untyped defaults to system", "", TypeSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
			if tt.typeAttr != "" {
				r.AddAttrs(slog.String("type", tt.typeAttr))
			}
			if got := getLogType(&r); got != tt.want {
				t.Errorf("getLogType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldSkipLog(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Received Gateway Event", true},
		{"sending heartbeat", true},
		{"Participant logged in", false},
		{"Query executed", false},
	}

	for _, tt := range tests {
		r := slog.NewRecord(time.Now(), slog.LevelDebug, tt.msg, 0)
		if got := shouldSkipLog(&r); got != tt.want {
			t.Errorf("shouldSkipLog(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestLogError(t *testing.T) {
	h := &recordingHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	defer slog.SetDefault(prev)

	LogError("Failed to send reply", errors.New("boom"), slog.String("channel_id", "42"))

	if len(h.records) != 1 {
		t.Fatalf("got %d records, want 1", len(h.records))
	}
	r := h.records[0]
	if r.Message != "Failed to send reply" {
		t.Errorf("message = %q", r.Message)
	}
	if got := getLogType(&r); got != TypeError {
		t.Errorf("log type = %q, want %q", got, TypeError)
	}
	if got := getErrorDetails(&r); got != "boom" {
		t.Errorf("error details = %q, want %q", got, "boom")
	}
}
