package middleware

import (
	"net/http"
	"strings"

	"pulsewatch/internal/httpapi"
	projectrepo "pulsewatch/internal/project/repository"
	"pulsewatch/internal/security"
)

const bearerPrefix = "bearer "

// APIKeyAuth returns middleware that authenticates ingestion requests by
// project API key (x-api-key header or Authorization bearer token) and puts
// the resolved project in the request context.
//
// The key is checked before any body read. All failures — missing key,
// unknown key id, secret mismatch — produce the same generic 401.
func APIKeyAuth(projects projectrepo.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				httpapi.Unauthorized(w)
				return
			}
			keyID, secret, err := security.ParseAPIKey(key)
			if err != nil {
				httpapi.Unauthorized(w)
				return
			}
			project, err := projects.GetByAPIKeyID(r.Context(), keyID)
			if err != nil {
				httpapi.Internal(w, "apikey lookup", err)
				return
			}
			if project == nil || !security.APIKeySecretEqual(secret, project.APIKeyHash) {
				httpapi.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProject(r.Context(), project)))
		})
	}
}

// extractAPIKey returns the API key from x-api-key or the Authorization bearer
// value, or "" if neither is present.
func extractAPIKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("x-api-key")); v != "" {
		return v
	}
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
