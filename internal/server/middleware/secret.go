package middleware

import (
	"net/http"

	"pulsewatch/internal/httpapi"
	"pulsewatch/internal/security"
)

// SharedSecret returns middleware that guards operational triggers (e.g. the
// retention sweep) with a bearer shared secret. An empty configured secret
// disables the route entirely rather than leaving it open.
func SharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := extractBearer(r)
			if !security.SecretEqual(provided, secret) {
				httpapi.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
