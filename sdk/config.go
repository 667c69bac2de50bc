package sdk

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultBatchSize         = 20
	DefaultBatchTimeout      = 5 * time.Second
	DefaultFlushRetries      = 2
	DefaultRequestTimeout    = 10 * time.Second
	DefaultHeartbeatInterval = 20 * time.Second
)

// maxBufferedEvents bounds the in-memory queue; beyond it the oldest events
// are dropped so a dead backend cannot grow the host process without limit.
const maxBufferedEvents = 1000

// Config configures a Client. Endpoint and APIKey are required; every other
// field has a sensible default.
type Config struct {
	// Endpoint is the base URL of the ingestion API (e.g. "https://in.pulsewatch.dev").
	Endpoint string
	// APIKey is the project ingestion key (pw_..._...).
	APIKey string
	// BatchSize triggers an immediate flush once this many events are buffered. Default 20.
	BatchSize int
	// BatchTimeout flushes whatever is buffered after this long without a size trigger. Default 5s.
	BatchTimeout time.Duration
	// FlushRetries is how many times a failed flush is retried before the batch
	// is requeued for the next cycle. Default 2.
	FlushRetries int
	// RequestTimeout bounds each HTTP request. Default 10s.
	RequestTimeout time.Duration
	// HeartbeatInterval is the presence heartbeat period. Default 20s; must stay
	// under the server's 60s online TTL.
	HeartbeatInterval time.Duration
	// SessionTTL rotates the session id after this long. 0 means the session
	// lives until ResetSession or the Client is discarded.
	SessionTTL time.Duration
	// UserAgent is attached to every event's context. Optional.
	UserAgent string
	// HTTPClient overrides the HTTP client; its Timeout is left untouched.
	HTTPClient *http.Client
	// Logger receives SDK-internal diagnostics. Defaults to a discard logger:
	// the SDK must never recursively capture its own logs.
	Logger *slog.Logger
	// Snapshotter supplies screenshots for CaptureError. Optional; when nil,
	// a placeholder snapshotter is used.
	Snapshotter Snapshotter
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return errors.New("sdk: Endpoint is required")
	}
	if c.APIKey == "" {
		return errors.New("sdk: APIKey is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.FlushRetries <= 0 {
		c.FlushRetries = DefaultFlushRetries
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Snapshotter == nil {
		c.Snapshotter = PlaceholderSnapshotter{}
	}
	return c
}
