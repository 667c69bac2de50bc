package sdk

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WrapRoundTripper returns a RoundTripper that captures an event for every
// failed outgoing request: transport errors and 5xx responses at error level,
// 4xx at warn level, each with the request duration attached. Successful
// responses pass through untouched. Requests to the SDK's own ingestion
// endpoint are never captured, so the SDK cannot report on itself.
func (c *Client) WrapRoundTripper(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &capturingRoundTripper{client: c, next: rt}
}

type capturingRoundTripper struct {
	client *Client
	next   http.RoundTripper
}

func (t *capturingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if t.ownEndpoint(req) {
		return resp, err
	}
	duration := time.Since(start).Milliseconds()

	switch {
	case err != nil:
		t.client.LogError(
			fmt.Sprintf("http request failed: %s %s: %v", req.Method, req.URL.Redacted(), err),
			WithURL(req.URL.Redacted()),
			WithPerf(duration, start),
		)
	case resp.StatusCode >= 500:
		t.client.LogError(
			fmt.Sprintf("http request returned %d: %s %s", resp.StatusCode, req.Method, req.URL.Redacted()),
			WithURL(req.URL.Redacted()),
			WithPerf(duration, start),
		)
	case resp.StatusCode >= 400:
		t.client.LogWarning(
			fmt.Sprintf("http request returned %d: %s %s", resp.StatusCode, req.Method, req.URL.Redacted()),
			WithURL(req.URL.Redacted()),
			WithPerf(duration, start),
		)
	}
	return resp, err
}

func (t *capturingRoundTripper) ownEndpoint(req *http.Request) bool {
	return strings.HasPrefix(req.URL.String(), t.client.transport.endpoint)
}
