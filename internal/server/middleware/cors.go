package middleware

import "net/http"

// corsAllowedHeaders are the request headers the SDK sends cross-origin.
const corsAllowedHeaders = "Content-Type, Authorization, x-api-key"

// CORS answers preflight requests and echoes permissive headers on every
// response. The ingestion surface is called from arbitrary third-party origins
// embedding the SDK, so the origin is a wildcard; auth is the API key, never
// cookies.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
