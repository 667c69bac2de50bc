package presence

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanPageSize bounds each SCAN page so enumeration never blocks the shared
// store the way a full KEYS listing would.
const scanPageSize = 100

// RedisStore implements Store on a Redis database. Expiry is Redis TTL.
type RedisStore struct {
	client *redis.Client
	nowF   func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// An unreachable or misconfigured store is a fatal configuration error raised
// here, not a per-call recoverable condition.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client, nowF: func() time.Time { return time.Now().UTC() }}, nil
}

// NewRedisStoreFromClient wraps an existing client (tests use miniredis here).
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, nowF: func() time.Time { return time.Now().UTC() }}
}

// MarkOnline writes the session's key with OnlineTTL. The value is the write
// timestamp; only key existence signifies "online".
func (s *RedisStore) MarkOnline(ctx context.Context, projectID, sessionID string) error {
	return s.client.Set(ctx, Key(projectID, sessionID), s.nowF().Format(time.RFC3339), OnlineTTL).Err()
}

// CountOnline counts live sessions with a cursor-based bounded-page scan,
// iterating until the cursor returns to its start sentinel.
func (s *RedisStore) CountOnline(ctx context.Context, projectID string) (int, error) {
	sessions, err := s.ListOnline(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// ListOnline returns the session id suffix of every live key under the
// project's prefix.
func (s *RedisStore) ListOnline(ctx context.Context, projectID string) ([]string, error) {
	prefix := projectPrefix(projectID)
	pattern := prefix + "*"

	sessions := make([]string, 0)
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanPageSize).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			id := strings.TrimPrefix(k, prefix)
			// SCAN may return a key more than once across pages.
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			sessions = append(sessions, id)
		}
		cursor = next
		if cursor == 0 {
			return sessions, nil
		}
	}
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
