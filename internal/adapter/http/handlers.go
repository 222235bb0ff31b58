package http

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/Strob0t/costreport/internal/service"
)

// maxQueryLength bounds the raw report query string.
const maxQueryLength = 4096

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Reports *service.ReportService
	DB      Pinger
	Version string
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "postgres": "unreachable"})
			return
		}
		status["postgres"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

// acceptsCSV reports whether any Accept entry names text/csv.
func acceptsCSV(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == service.ContentTypeCSV {
			return true
		}
	}
	return false
}
