package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vantag/assistant-gateway/internal/api"
)

type contextKey string

const adminClaimsKey contextKey = "admin_claims"

// AdminMiddleware requires a valid admin bearer token. A nil manager
// (no secret configured) rejects everything, so admin routes stay closed
// rather than open on a misconfigured deployment.
func AdminMiddleware(m *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := m.Validate(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminClaims returns the admin claims from the context, or nil.
func GetAdminClaims(ctx context.Context) *AdminClaims {
	claims, _ := ctx.Value(adminClaimsKey).(*AdminClaims)
	return claims
}
