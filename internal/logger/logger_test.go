package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Strob0t/AgentShift/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestContextAttrs(t *testing.T) {
	for _, async := range []bool{false, true} {
		var buf bytes.Buffer
		l, closer := newLogger(&buf, config.Logging{Level: "info", Service: "agentshift", Async: async})

		ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-1")
		l.InfoContext(ctx, "report built", "rows", 3)
		closer.Close()

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("async=%v: decode %q: %v", async, buf.String(), err)
		}
		if rec["service"] != "agentshift" {
			t.Errorf("async=%v: service = %v", async, rec["service"])
		}
		if rec["request_id"] != "req-1" {
			t.Errorf("async=%v: request_id = %v", async, rec["request_id"])
		}
		if rec["session_id"] != "sess-1" {
			t.Errorf("async=%v: session_id = %v", async, rec["session_id"])
		}
	}
}

func TestContextIDs(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := SessionID(ctx); got != "" {
		t.Errorf("expected empty session ID, got %q", got)
	}
	ctx = WithSessionID(ctx, "abc")
	if got := SessionID(ctx); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}
