package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/costreport/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. Report
// routes resolve their tenant from X-Tenant-ID, falling back to
// defaultTenant.
func MountRoutes(r chi.Router, h *Handlers, defaultTenant string) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.Tenant(defaultTenant))
			r.Get("/{provider}", h.ListReportTypes)
			r.Get("/{provider}/{report}", h.GetReport)
			r.Get("/{provider}/{report}/line-items", h.GetLineItems)
		})
	})
}
