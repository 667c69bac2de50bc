package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"
)

// CaptureOption customizes a captured event.
type CaptureOption func(*Event)

// WithTags merges tags into the event context.
func WithTags(tags map[string]string) CaptureOption {
	return func(e *Event) {
		if e.Context.Tags == nil {
			e.Context.Tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			e.Context.Tags[k] = v
		}
	}
}

// WithExtra merges free-form payload data into the event context.
func WithExtra(extra map[string]any) CaptureOption {
	return func(e *Event) {
		if e.Context.Extra == nil {
			e.Context.Extra = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			e.Context.Extra[k] = v
		}
	}
}

// WithURL sets the page/resource URL the event concerns.
func WithURL(url string) CaptureOption {
	return func(e *Event) { e.Context.URL = url }
}

// WithStack attaches an explicit stack trace.
func WithStack(stack string) CaptureOption {
	return func(e *Event) { e.Stack = stack }
}

// WithPerf attaches timing data.
func WithPerf(durationMS int64, startedAt time.Time) CaptureOption {
	return func(e *Event) {
		s := startedAt.UTC()
		e.Perf = &Perf{DurationMS: durationMS, StartedAt: &s}
	}
}

// WithClickTrail attaches the recent user-interaction trail as raw JSON.
func WithClickTrail(trail json.RawMessage) CaptureOption {
	return func(e *Event) { e.ClickTrail = trail }
}

// Log captures an event at the given level.
func (c *Client) Log(level Level, message string, opts ...CaptureOption) {
	e := &Event{Level: level, Message: message, Context: &EventContext{}}
	for _, opt := range opts {
		opt(e)
	}
	c.Enqueue(e)
}

// LogError captures an error-level event.
func (c *Client) LogError(message string, opts ...CaptureOption) {
	c.Log(LevelError, message, opts...)
}

// LogWarning captures a warn-level event.
func (c *Client) LogWarning(message string, opts ...CaptureOption) {
	c.Log(LevelWarn, message, opts...)
}

// LogInfo captures an info-level event.
func (c *Client) LogInfo(message string, opts ...CaptureOption) {
	c.Log(LevelInfo, message, opts...)
}

// LogDebug captures a debug-level event.
func (c *Client) LogDebug(message string, opts ...CaptureOption) {
	c.Log(LevelDebug, message, opts...)
}

// CaptureError captures err as an error-level event with the current goroutine
// stack and, when the snapshotter yields one, a screenshot. Nil errors are
// ignored.
func (c *Client) CaptureError(ctx context.Context, err error, opts ...CaptureOption) {
	if err == nil {
		return
	}
	e := &Event{
		Level:   LevelError,
		Message: err.Error(),
		Stack:   string(debug.Stack()),
		Context: &EventContext{},
	}
	e.Screenshot = c.snapshot(ctx)
	for _, opt := range opts {
		opt(e)
	}
	c.Enqueue(e)
}

// Recover captures an in-flight panic as an error event and suppresses it.
// Use in a deferred call:
//
//	defer client.Recover(ctx)
//
// The panic is not re-raised; callers that need to crash should re-panic
// themselves after inspecting the captured state.
func (c *Client) Recover(ctx context.Context, opts ...CaptureOption) {
	if r := recover(); r != nil {
		c.CaptureError(ctx, fmt.Errorf("panic: %v", r), opts...)
	}
}
