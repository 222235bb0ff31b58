package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/Strob0t/costreport/internal/logger"
)

const headerTenantID = "X-Tenant-ID"

// schemaPattern accepts lower-case Postgres schema names.
var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type tenantCtxKey struct{}

// ValidTenant reports whether name can be used as a tenant schema.
func ValidTenant(name string) bool {
	return schemaPattern.MatchString(name)
}

// Tenant returns middleware that reads the tenant schema from the
// X-Tenant-ID header, falling back to defaultTenant, and stores it in the
// request context. Malformed tenant names are rejected with 400.
func Tenant(defaultTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get(headerTenantID)
			if tid == "" {
				tid = defaultTenant
			}
			if !ValidTenant(tid) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid tenant"}`))
				return
			}
			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tid)
			ctx = logger.WithTenant(ctx, tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant schema stored in ctx, or "" if absent.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}
