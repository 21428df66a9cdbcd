package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/agendasalon/agenda/libs/httpx"
)

type ctxKey int

const tenantKey ctxKey = iota

// RequireTenant reads the tenant id set by the gateway. Requests without a
// valid positive id are rejected.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(httpx.TenantHeader))
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, httpx.TenantHeader+" header is required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey, id)))
	})
}

func tenantFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(tenantKey).(int64)
	return id
}
