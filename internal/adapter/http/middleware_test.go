package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/costreport/internal/domain"
)

func TestResponseWriterRecordsStatusAndBytes(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if rw.status != http.StatusAccepted || inner.Code != http.StatusAccepted {
		t.Errorf("status = %d / %d, want 202", rw.status, inner.Code)
	}
	if rw.written != 5 {
		t.Errorf("written = %d, want 5", rw.written)
	}
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	rw.WriteHeader(http.StatusBadRequest)
	rw.WriteHeader(http.StatusGatewayTimeout)

	if rw.status != http.StatusBadRequest || inner.Code != http.StatusBadRequest {
		t.Errorf("status = %d / %d, want 400", rw.status, inner.Code)
	}
}

func TestWriteReportError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", fmt.Errorf(`unsupported group_by "cluster": %w`, domain.ErrValidation), http.StatusBadRequest, `{"error":"unsupported group_by \"cluster\""}`},
		{"missing tenant", fmt.Errorf("tenant acct1: %w", domain.ErrNotFound), http.StatusNotFound, `{"error":"tenant not found"}`},
		{"deadline", fmt.Errorf("aggregate: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, `{"error":"report timed out"}`},
		{"client gone", context.Canceled, http.StatusOK, ""},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/reports/aws/costs", http.NoBody)
			writeReportError(w, r, tt.err, "tenant not found")

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.body {
				t.Errorf("body = %s, want %s", got, tt.body)
			}
		})
	}
}

func TestResponseWriterFlush(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	// responseWriter must satisfy http.Flusher.
	f, ok := http.ResponseWriter(rw).(http.Flusher)
	if !ok {
		t.Fatal("responseWriter does not implement http.Flusher")
	}
	f.Flush()

	if !inner.Flushed {
		t.Fatal("expected inner ResponseRecorder to be flushed")
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS("http://localhost:3000")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports/aws/costs", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestAcceptsCSV(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"application/json", false},
		{"text/csv", true},
		{"application/json, text/csv;q=0.9", true},
		{"text/csvx", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Accept", tt.accept)
		if got := acceptsCSV(req); got != tt.want {
			t.Errorf("acceptsCSV(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}
