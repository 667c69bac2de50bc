package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxEventsPerRequest matches the server's per-batch cap.
const maxEventsPerRequest = 100

// Client buffers events and ships them to the ingestion API. Safe for
// concurrent use. Create with New, stop with Close.
type Client struct {
	cfg       Config
	transport *transport

	sessionMu   sync.Mutex
	sessionID   string
	sessionBorn time.Time
	userID      string

	mu     sync.Mutex
	buffer []*Event

	// flushMu serializes flushes: a timer flush and an explicit Flush never
	// interleave batches.
	flushMu sync.Mutex

	flushCh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New validates cfg, applies defaults, mints a session id, and starts the
// background flush loop.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:         cfg,
		transport:   newTransport(cfg),
		sessionID:   uuid.NewString(),
		sessionBorn: time.Now(),
		flushCh:     make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// SessionID returns the current session id. Stable until ResetSession or,
// when SessionTTL is set, until the id ages past the TTL and is rotated.
func (c *Client) SessionID() string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.cfg.SessionTTL > 0 && time.Since(c.sessionBorn) >= c.cfg.SessionTTL {
		c.sessionID = uuid.NewString()
		c.sessionBorn = time.Now()
	}
	return c.sessionID
}

// ResetSession mints a new session id and returns it. Already-buffered events
// keep the id they were captured under.
func (c *Client) ResetSession() string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.sessionID = uuid.NewString()
	c.sessionBorn = time.Now()
	return c.sessionID
}

// SetUser attaches a user id to subsequently captured events and page visits.
// Pass "" to detach.
func (c *Client) SetUser(userID string) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	c.userID = userID
}

func (c *Client) currentUser() string {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.userID
}

// Enqueue adds an event to the buffer, filling in timestamp and session
// context if absent. The flush happens asynchronously; Enqueue never blocks on
// the network. When the buffer is full the oldest events are dropped.
func (c *Client) Enqueue(e *Event) {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Context == nil {
		e.Context = &EventContext{}
	}
	if e.Context.SessionID == "" {
		e.Context.SessionID = c.SessionID()
	}
	if e.Context.UserID == "" {
		e.Context.UserID = c.currentUser()
	}
	if e.Context.UserAgent == "" {
		e.Context.UserAgent = c.cfg.UserAgent
	}

	c.mu.Lock()
	c.buffer = append(c.buffer, e)
	if n := len(c.buffer) - maxBufferedEvents; n > 0 {
		c.buffer = c.buffer[n:]
		c.cfg.Logger.Warn("pulsewatch: buffer full, dropped oldest events", "dropped", n)
	}
	full := len(c.buffer) >= c.cfg.BatchSize
	c.mu.Unlock()

	if full {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
}

// run is the background flush loop: flushes on the batch-size signal and on
// every BatchTimeout tick.
func (c *Client) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.BatchTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		case <-c.flushCh:
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		if err := c.Flush(ctx); err != nil {
			c.cfg.Logger.Warn("pulsewatch: background flush failed", "err", err)
		}
		cancel()
	}
}

// Flush sends all buffered events now, in batches of at most 100, retrying
// each failed batch FlushRetries times. On final failure the unsent events are
// requeued at the front of the buffer and the error is returned; nothing is
// dropped, so delivery is at-least-once.
func (c *Client) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	pending := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	for len(pending) > 0 {
		n := len(pending)
		if n > maxEventsPerRequest {
			n = maxEventsPerRequest
		}
		batch := pending[:n]
		if err := c.sendWithRetry(ctx, batch); err != nil {
			c.requeue(pending)
			return err
		}
		pending = pending[n:]
	}
	return nil
}

func (c *Client) sendWithRetry(ctx context.Context, batch []*Event) error {
	var err error
	for attempt := 0; attempt <= c.cfg.FlushRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
		}
		if err = c.transport.sendEvents(ctx, batch); err == nil {
			return nil
		}
	}
	return err
}

// retryBaseDelay is the base of the linear retry backoff.
var retryBaseDelay = 50 * time.Millisecond

// requeue puts unsent events back at the front of the buffer so a later flush
// retries them before anything captured since.
func (c *Client) requeue(events []*Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = append(events, c.buffer...)
	if n := len(c.buffer) - maxBufferedEvents; n > 0 {
		c.buffer = c.buffer[n:]
		c.cfg.Logger.Warn("pulsewatch: buffer full, dropped oldest events", "dropped", n)
	}
}

// buffered returns the current buffer length.
func (c *Client) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Start begins sending presence heartbeats every HeartbeatInterval, starting
// immediately, until ctx is done or the client is closed. The session shows as
// online on the dashboard while the loop runs and drops off the online count
// within the server's TTL after it stops.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.heartbeat(ctx)
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.heartbeat(ctx)
			}
		}
	}()
}

func (c *Client) heartbeat(ctx context.Context) {
	hbCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	if err := c.transport.sendHeartbeat(hbCtx, c.SessionID()); err != nil {
		c.cfg.Logger.Warn("pulsewatch: heartbeat failed", "err", err)
	}
}

// TrackPageVisit records a page visit immediately (not buffered). Session,
// user, user agent, and timestamp are filled in when absent.
func (c *Client) TrackPageVisit(ctx context.Context, v PageVisit) error {
	if v.SessionID == "" {
		v.SessionID = c.SessionID()
	}
	if v.UserID == "" {
		v.UserID = c.currentUser()
	}
	if v.UserAgent == "" {
		v.UserAgent = c.cfg.UserAgent
	}
	if v.Timestamp == nil {
		now := time.Now().UTC()
		v.Timestamp = &now
	}
	return c.transport.sendPageVisit(ctx, v)
}

// Close stops the background loops and performs a final flush bounded by ctx.
// Idempotent. The client must not be used after Close.
func (c *Client) Close(ctx context.Context) error {
	var flushErr error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		flushErr = c.Flush(ctx)
	})
	return flushErr
}
