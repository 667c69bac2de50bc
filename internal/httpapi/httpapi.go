// Package httpapi holds the JSON response envelope shared by all HTTP handlers.
//
// Error bodies follow a fixed taxonomy: authentication and not-found failures
// carry a generic message only; validation failures carry per-field detail
// (safe to expose, it concerns the caller's own request); internal failures
// are logged server-side and never echo detail to the client.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the JSON body for all non-2xx responses.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as JSON with the given status. Encoding failures are
// logged; headers are already sent by then so nothing else can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpapi: encode response", "err", err)
	}
}

// Unauthorized writes a 401 with a generic message. No detail about why the
// credential was rejected is ever included.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

// NotFound writes a 404 with a generic message.
func NotFound(w http.ResponseWriter) {
	WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
}

// BadRequest writes a 400 with a single top-level message (e.g. unparsable body).
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// PayloadTooLarge writes a 413 with a generic message.
func PayloadTooLarge(w http.ResponseWriter) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
}

// ValidationFailed writes a 400 with per-field messages.
func ValidationFailed(w http.ResponseWriter, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: fields})
}

// Internal logs the underlying error and writes a 500 with a generic body.
func Internal(w http.ResponseWriter, op string, err error) {
	slog.Error("httpapi: internal error", "op", op, "err", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// DecodeJSON decodes the request body into v. Unknown fields are accepted;
// newer SDKs may send fields the server predates.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
