package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/site-analyzer/portal/internal/http/response"
	"github.com/site-analyzer/portal/internal/observability"
	"github.com/site-analyzer/portal/internal/security"
	"github.com/site-analyzer/portal/internal/service"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// AccessVerifier is satisfied by *service.TokenService.
type AccessVerifier interface {
	VerifyAccess(token string) (*security.Claims, error)
}

// AuthMiddleware admits requests carrying a valid bearer access token.
// Expired, revoked-class and malformed tokens all surface as the same 401
// body; the distinction lives in metrics and logs only.
func AuthMiddleware(tokens AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "bearer")
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				outcome := "invalid"
				if errors.Is(err, service.ErrExpiredToken) {
					outcome = "expired"
				}
				observability.RecordAccessTokenValidation(r.Context(), outcome, "bearer")
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "bearer")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
