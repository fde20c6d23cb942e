package shared

import (
	"net/http"

	"github.com/harborline/harborline/internal/platform/httpx"
)

// RequireScope rejects requests without gateway scope headers and stores the
// parsed Scope in the request context.
func RequireScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := ScopeFromRequest(r)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithScope(r.Context(), scope)))
	})
}
