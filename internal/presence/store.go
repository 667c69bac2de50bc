// Package presence tracks which sessions are currently active per project.
//
// A session is "online" while its key exists in a TTL store; every heartbeat
// rewrites the key and resets the clock. Expiry is enforced by the store
// itself, never by application logic, so there is no disconnect signal to
// miss: liveness is inferred purely from heartbeat recency.
package presence

import (
	"context"
	"time"
)

// KeyPrefix scopes presence keys: online_users:{projectID}:{sessionID}.
const KeyPrefix = "online_users:"

// OnlineTTL is how long a session counts as online after its last heartbeat.
// SDKs must heartbeat at an interval safely under this (10–30s).
const OnlineTTL = 60 * time.Second

// Store records and enumerates live sessions. Counts are best-effort
// snapshots; concurrent heartbeats race benignly on independent keys.
type Store interface {
	// MarkOnline writes or refreshes the session's presence key with OnlineTTL.
	// Idempotent: repeated calls reset the expiry clock. Marking a session
	// whose key already expired is a fresh mark, not an error.
	MarkOnline(ctx context.Context, projectID, sessionID string) error
	// CountOnline returns the number of distinct live sessions for the project.
	CountOnline(ctx context.Context, projectID string) (int, error)
	// ListOnline returns the live session ids for the project.
	ListOnline(ctx context.Context, projectID string) ([]string, error)
}

// Key builds the presence key for a project/session pair.
func Key(projectID, sessionID string) string {
	return KeyPrefix + projectID + ":" + sessionID
}

// projectPrefix is the key prefix shared by all of a project's sessions.
func projectPrefix(projectID string) string {
	return KeyPrefix + projectID + ":"
}
