package middleware

import (
	"net/http"

	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/observability"
)

// RequireRole gates a route on the role embedded in the access token. The
// role is whatever was current at token issuance; a mid-session role change
// takes effect at the next rotation.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if claims.Role != role {
				observability.Audit(r, "role_denied", "username", claims.Username, "required", role)
				response.Error(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
