package presence

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for tests and single-node
// development. Expiry is checked lazily on read against an injectable clock.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]time.Time // key -> expiry deadline
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory presence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]time.Time),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// MarkOnline writes or refreshes the session's key with OnlineTTL.
func (s *MemoryStore) MarkOnline(ctx context.Context, projectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[Key(projectID, sessionID)] = s.nowF().Add(OnlineTTL)
	return nil
}

// CountOnline returns the number of live sessions for the project.
func (s *MemoryStore) CountOnline(ctx context.Context, projectID string) (int, error) {
	sessions, err := s.ListOnline(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// ListOnline returns the live session ids for the project, dropping expired
// entries as it goes.
func (s *MemoryStore) ListOnline(ctx context.Context, projectID string) ([]string, error) {
	prefix := projectPrefix(projectID)
	now := s.nowF()

	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]string, 0)
	for k, deadline := range s.m {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !deadline.After(now) {
			delete(s.m, k)
			continue
		}
		sessions = append(sessions, strings.TrimPrefix(k, prefix))
	}
	return sessions, nil
}
