package middleware

import (
	"net/http"
	"strings"

	"pulsewatch/internal/httpapi"
	"pulsewatch/internal/security"
)

// DashboardAuth returns middleware that validates the Bearer access token for
// dashboard-only routes and sets the user id in context. The token issuer is
// the excluded login service; this side only validates.
func DashboardAuth(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				httpapi.Unauthorized(w)
				return
			}
			token := extractBearer(r)
			if token == "" {
				httpapi.Unauthorized(w)
				return
			}
			userID, err := tokens.ValidateAccess(token)
			if err != nil {
				httpapi.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
