package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// transport owns the HTTP mechanics: JSON encoding, auth header, status
// handling. It has no knowledge of batching or retries.
type transport struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func newTransport(cfg Config) *transport {
	return &transport{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   cfg.HTTPClient,
	}
}

// apiError is a non-2xx response from the ingestion API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("pulsewatch: api responded %d: %s", e.Status, e.Body)
}

func (t *transport) sendEvents(ctx context.Context, events []*Event) error {
	return t.post(ctx, "/events", map[string]any{"events": events})
}

func (t *transport) sendHeartbeat(ctx context.Context, sessionID string) error {
	return t.post(ctx, "/heartbeat", map[string]string{"sessionId": sessionID})
}

func (t *transport) sendPageVisit(ctx context.Context, v PageVisit) error {
	return t.post(ctx, "/page-visits", v)
}

func (t *transport) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pulsewatch: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Cap the echoed body; it is only for diagnostics.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
