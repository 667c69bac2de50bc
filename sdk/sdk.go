// Package sdk is the Go client for the Pulsewatch ingestion API.
//
// A Client buffers captured events in memory and flushes them in batches,
// either when the buffer reaches BatchSize or when BatchTimeout elapses,
// whichever comes first. Failed flushes requeue the batch, so delivery is
// at-least-once and events may arrive duplicated or out of order; the server
// assigns authoritative timestamps only when the client omits them.
//
// The Client also maintains a session: a random id minted at construction,
// sent with every event and heartbeat, and kept until ResetSession or the
// configured SessionTTL rotates it. While
// Start's heartbeat loop runs, the session counts as online on the dashboard.
package sdk

import (
	"encoding/json"
	"time"
)

// Level is the severity of a captured event.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Event is one captured diagnostic event as sent on the wire.
type Event struct {
	Level      Level           `json:"level"`
	Message    string          `json:"message"`
	Stack      string          `json:"stack,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Context    *EventContext   `json:"context,omitempty"`
	Perf       *Perf           `json:"perf,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"`
	ClickTrail json.RawMessage `json:"clickTrail,omitempty"`
}

// EventContext carries the ambient metadata attached to an event.
type EventContext struct {
	UserAgent string            `json:"userAgent,omitempty"`
	URL       string            `json:"url,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Extra     map[string]any    `json:"extra,omitempty"`
}

// Perf carries optional timing data for an event.
type Perf struct {
	DurationMS int64      `json:"durationMs,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
}

// PageVisit is one page-load/navigation record.
type PageVisit struct {
	URL        string     `json:"url"`
	Pathname   string     `json:"pathname"`
	Referrer   string     `json:"referrer,omitempty"`
	UserAgent  string     `json:"userAgent,omitempty"`
	SessionID  string     `json:"sessionId,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	DurationMS int64      `json:"durationMs,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}
