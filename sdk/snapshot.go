package sdk

import (
	"context"
	"encoding/base64"
)

// Snapshotter produces a screenshot-like artifact to attach to error events.
// What a capture means is up to the host application: a headless browser
// render, a TUI dump, a canvas export.
type Snapshotter interface {
	Capture(ctx context.Context) ([]byte, error)
}

// placeholderPNG is a 1x1 transparent PNG.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// PlaceholderSnapshotter is the guaranteed floor: it returns a fixed 1x1 PNG
// so dashboards render a consistent "no capture" tile instead of an empty
// column. Never fails.
type PlaceholderSnapshotter struct{}

// Capture returns the placeholder PNG.
func (PlaceholderSnapshotter) Capture(context.Context) ([]byte, error) {
	return placeholderPNG, nil
}

// snapshot runs the configured snapshotter and falls back to the placeholder
// when it fails or returns nothing. The result is a data URI for the wire.
func (c *Client) snapshot(ctx context.Context) string {
	data, err := c.cfg.Snapshotter.Capture(ctx)
	if err != nil || len(data) == 0 {
		data = placeholderPNG
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
