package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/costreport/internal/domain"
	"github.com/Strob0t/costreport/internal/middleware"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeReportError maps a failed report request onto a status.
// Validation messages name the offending parameter and go back verbatim.
// A report that outlives the request deadline is a 504; a client that went
// away gets no body at all.
func writeReportError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	attrs := []any{
		"tenant", middleware.TenantFromContext(r.Context()),
		"provider", urlParam(r, "provider"),
		"report", urlParam(r, "report"),
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrNotFound):
		slog.Warn("report target not found", append(attrs, "error", err)...)
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("report timed out", attrs...)
		writeError(w, http.StatusGatewayTimeout, "report timed out")
	case errors.Is(err, context.Canceled):
		slog.Info("report abandoned by client", attrs...)
	default:
		slog.Error("report failed", append(attrs, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
