package domain

import (
	"encoding/json"
	"time"
)

// Levels an event may carry. Anything else is rejected at the ingestion boundary.
const (
	LevelError = "error"
	LevelWarn  = "warn"
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// ValidLevel reports whether level is one of the four enumerated values.
func ValidLevel(level string) bool {
	switch level {
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
		return true
	}
	return false
}

// Event is one captured diagnostic record. Immutable after creation; the
// timestamp is the SDK capture time when supplied, otherwise set server-side.
type Event struct {
	ID        int64
	ProjectID string
	Timestamp time.Time
	Level     string
	Message   string
	Stack     *string

	// Context supplied by the SDK.
	UserAgent *string
	URL       *string
	SessionID *string
	UserID    *string
	Tags      json.RawMessage
	Extra     json.RawMessage

	// Performance metadata.
	DurationMS *int64
	StartedAt  *time.Time

	Screenshot *string
	ClickTrail json.RawMessage

	CreatedAt time.Time
}
