package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/Strob0t/costreport/internal/config"
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
	var buf bytes.Buffer
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := NewWithWriter(cfg, &buf)
	l.Info("queued")
	closer.Close()
	closer.Close()

	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"queued"`)) {
		t.Errorf("async record not flushed on close: %s", buf.String())
	}
}

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWithWriter(config.Logging{Level: "info", Service: "costreport"}, &buf)
	defer closer.Close()

	ctx := WithTenant(WithRequestID(context.Background(), "req-1"), "acct10001")
	l.InfoContext(ctx, "report served", "provider", "aws")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	for key, want := range map[string]string{
		"service":    "costreport",
		"request_id": "req-1",
		"tenant":     "acct10001",
		"provider":   "aws",
	} {
		if rec[key] != want {
			t.Errorf("%s = %v, want %s", key, rec[key], want)
		}
	}
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

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
	if got := Tenant(ctx); got != "" {
		t.Errorf("expected empty tenant, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTenant(ctx, "acct10001")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := Tenant(ctx); got != "acct10001" {
		t.Errorf("expected acct10001, got %q", got)
	}
}
