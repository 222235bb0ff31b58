package http

import (
	"net/http"

	"github.com/Strob0t/costreport/internal/middleware"
	"github.com/Strob0t/costreport/internal/service"
)

// --- Report Endpoints ---

// ListReportTypes handles GET /api/v1/reports/{provider}
func (h *Handlers) ListReportTypes(w http.ResponseWriter, r *http.Request) {
	prov := urlParam(r, "provider")
	types, err := h.Reports.ReportTypes(prov)
	if err != nil {
		writeReportError(w, r, err, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider": prov, "report_types": types})
}

// GetReport handles GET /api/v1/reports/{provider}/{report}
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, true)
}

// GetLineItems handles GET /api/v1/reports/{provider}/{report}/line-items
func (h *Handlers) GetLineItems(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, false)
}

func (h *Handlers) serveReport(w http.ResponseWriter, r *http.Request, isSum bool) {
	if len(r.URL.RawQuery) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query string too long")
		return
	}

	req := service.Request{
		Tenant:     middleware.TenantFromContext(r.Context()),
		Provider:   urlParam(r, "provider"),
		ReportType: urlParam(r, "report"),
		RawQuery:   r.URL.RawQuery,
		IsSum:      isSum,
		CSV:        acceptsCSV(r),
	}
	res, err := h.Reports.Render(r.Context(), req)
	if err != nil {
		writeReportError(w, r, err, "tenant not found")
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	if req.CSV {
		w.Header().Set("Content-Disposition", `attachment; filename="`+req.Provider+"-"+req.ReportType+`.csv"`)
	}
	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}
