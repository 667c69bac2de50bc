// Package stream fans stored events out to downstream consumers (e.g. Kafka).
// Fan-out is best-effort and never affects ingestion responses.
package stream

import (
	"context"

	eventdomain "pulsewatch/internal/event/domain"
)

// Producer emits stored events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single stored event. Implementations may block briefly; call from a goroutine if needed.
	// Returns an error only on write failure; callers typically log and ignore.
	Emit(ctx context.Context, e *eventdomain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
