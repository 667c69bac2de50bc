// Package handler implements the ingestion HTTP surface: the sole trust
// boundary between untrusted browser clients and durable storage.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	eventdomain "pulsewatch/internal/event/domain"
	eventrepo "pulsewatch/internal/event/repository"
	"pulsewatch/internal/httpapi"
	"pulsewatch/internal/presence"
	"pulsewatch/internal/server/middleware"
	"pulsewatch/internal/stream"
	visitdomain "pulsewatch/internal/visit/domain"
	visitrepo "pulsewatch/internal/visit/repository"
)

// maxBatchSize caps one SDK flush; the SDK's default batch is far below this.
const maxBatchSize = 100

// Handler serves /heartbeat, /events, and /page-visits. Each request is
// processed independently and statelessly; concurrency correctness is
// delegated to the durable store's per-record atomicity.
type Handler struct {
	presence presence.Store
	events   eventrepo.Repository
	visits   visitrepo.Repository
	fanouts  []stream.Producer

	heartbeats   metric.Int64Counter
	eventsStored metric.Int64Counter
	visitsStored metric.Int64Counter
}

// NewHandler returns an ingestion handler. fanouts may be empty; each stored
// event is emitted to every producer, fire-and-forget.
func NewHandler(store presence.Store, events eventrepo.Repository, visits visitrepo.Repository, fanouts ...stream.Producer) *Handler {
	meter := otel.Meter("pulsewatch/ingest")
	heartbeats, _ := meter.Int64Counter("ingest.heartbeats")
	eventsStored, _ := meter.Int64Counter("ingest.events_stored")
	visitsStored, _ := meter.Int64Counter("ingest.visits_stored")
	return &Handler{
		presence:     store,
		events:       events,
		visits:       visits,
		fanouts:      fanouts,
		heartbeats:   heartbeats,
		eventsStored: eventsStored,
		visitsStored: visitsStored,
	}
}

// writeDecodeError maps a body-decode failure to its response: 413 when the
// MaxBody limit was hit, 400 for anything else.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		httpapi.PayloadTooLarge(w)
		return
	}
	httpapi.BadRequest(w, "invalid JSON body")
}

type heartbeatRequest struct {
	SessionID string `json:"sessionId"`
}

// Heartbeat marks the caller's session online. One presence-store write per call.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	project, ok := middleware.GetProject(r.Context())
	if !ok {
		httpapi.Unauthorized(w)
		return
	}
	var req heartbeatRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.SessionID == "" {
		httpapi.ValidationFailed(w, map[string]string{"sessionId": "required"})
		return
	}
	if err := h.presence.MarkOnline(r.Context(), project.ID, req.SessionID); err != nil {
		httpapi.Internal(w, "mark online", err)
		return
	}
	h.heartbeats.Add(r.Context(), 1)
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type eventContextPayload struct {
	UserAgent *string           `json:"userAgent,omitempty"`
	URL       *string           `json:"url,omitempty"`
	SessionID *string           `json:"sessionId,omitempty"`
	UserID    *string           `json:"userId,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Extra     json.RawMessage   `json:"extra,omitempty"`
}

type perfPayload struct {
	DurationMS *int64     `json:"durationMs,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
}

type eventPayload struct {
	Level      string               `json:"level"`
	Message    string               `json:"message"`
	Stack      *string              `json:"stack,omitempty"`
	Timestamp  *time.Time           `json:"timestamp,omitempty"`
	Context    *eventContextPayload `json:"context,omitempty"`
	Perf       *perfPayload         `json:"perf,omitempty"`
	Screenshot *string              `json:"screenshot,omitempty"`
	ClickTrail json.RawMessage      `json:"clickTrail,omitempty"`
}

type eventsRequest struct {
	Events []eventPayload `json:"events"`
}

// Events accepts one SDK flush: a batch of 1–100 diagnostic events. Validation
// happens before any storage interaction; the whole batch is rejected on the
// first schema mismatch so the SDK can requeue it untouched.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	project, ok := middleware.GetProject(r.Context())
	if !ok {
		httpapi.Unauthorized(w)
		return
	}
	var req eventsRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if len(req.Events) == 0 {
		httpapi.ValidationFailed(w, map[string]string{"events": "required"})
		return
	}
	if len(req.Events) > maxBatchSize {
		httpapi.ValidationFailed(w, map[string]string{"events": fmt.Sprintf("at most %d per batch", maxBatchSize)})
		return
	}

	now := time.Now().UTC()
	batch := make([]*eventdomain.Event, 0, len(req.Events))
	for i, p := range req.Events {
		if fields := validateEvent(i, &p); len(fields) > 0 {
			httpapi.ValidationFailed(w, fields)
			return
		}
		batch = append(batch, toDomainEvent(project.ID, &p, now, r.UserAgent()))
	}

	if err := h.events.SaveBatch(r.Context(), batch); err != nil {
		httpapi.Internal(w, "save events", err)
		return
	}
	h.eventsStored.Add(r.Context(), int64(len(batch)))

	ids := make([]int64, len(batch))
	for i, e := range batch {
		ids[i] = e.ID
		for _, p := range h.fanouts {
			stream.EmitAsync(p, r.Context(), e)
		}
	}
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "ids": ids})
}

func validateEvent(i int, p *eventPayload) map[string]string {
	fields := map[string]string{}
	if p.Level == "" {
		fields[fmt.Sprintf("events[%d].level", i)] = "required"
	} else if !eventdomain.ValidLevel(p.Level) {
		fields[fmt.Sprintf("events[%d].level", i)] = "must be one of error, warn, info, debug"
	}
	if p.Message == "" {
		fields[fmt.Sprintf("events[%d].message", i)] = "required"
	}
	return fields
}

// toDomainEvent maps the wire payload to the domain record. The SDK-supplied
// capture timestamp wins; the server assigns one only when absent.
func toDomainEvent(projectID string, p *eventPayload, now time.Time, requestUA string) *eventdomain.Event {
	e := &eventdomain.Event{
		ProjectID:  projectID,
		Level:      p.Level,
		Message:    p.Message,
		Stack:      p.Stack,
		Timestamp:  now,
		Screenshot: p.Screenshot,
		ClickTrail: p.ClickTrail,
	}
	if p.Timestamp != nil && !p.Timestamp.IsZero() {
		e.Timestamp = p.Timestamp.UTC()
	}
	if c := p.Context; c != nil {
		e.UserAgent = c.UserAgent
		e.URL = c.URL
		e.SessionID = c.SessionID
		e.UserID = c.UserID
		if len(c.Tags) > 0 {
			if b, err := json.Marshal(c.Tags); err == nil {
				e.Tags = b
			}
		}
		e.Extra = c.Extra
	}
	if e.UserAgent == nil && requestUA != "" {
		ua := requestUA
		e.UserAgent = &ua
	}
	if p.Perf != nil {
		e.DurationMS = p.Perf.DurationMS
		if p.Perf.StartedAt != nil {
			t := p.Perf.StartedAt.UTC()
			e.StartedAt = &t
		}
	}
	return e
}

type visitRequest struct {
	URL        string     `json:"url"`
	Pathname   string     `json:"pathname"`
	Referrer   *string    `json:"referrer,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	SessionID  *string    `json:"sessionId,omitempty"`
	UserID     *string    `json:"userId,omitempty"`
	DurationMS *int64     `json:"durationMs,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// PageVisit records one page-load/navigation.
func (h *Handler) PageVisit(w http.ResponseWriter, r *http.Request) {
	project, ok := middleware.GetProject(r.Context())
	if !ok {
		httpapi.Unauthorized(w)
		return
	}
	var req visitRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	fields := map[string]string{}
	if req.URL == "" {
		fields["url"] = "required"
	}
	if req.Pathname == "" {
		fields["pathname"] = "required"
	}
	if len(fields) > 0 {
		httpapi.ValidationFailed(w, fields)
		return
	}

	v := &visitdomain.Visit{
		ProjectID:  project.ID,
		URL:        req.URL,
		Pathname:   req.Pathname,
		Referrer:   req.Referrer,
		UserAgent:  req.UserAgent,
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		DurationMS: req.DurationMS,
		Timestamp:  time.Now().UTC(),
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		v.Timestamp = req.Timestamp.UTC()
	}
	if v.UserAgent == nil && r.UserAgent() != "" {
		ua := r.UserAgent()
		v.UserAgent = &ua
	}

	if err := h.visits.Save(r.Context(), v); err != nil {
		httpapi.Internal(w, "save visit", err)
		return
	}
	h.visitsStored.Add(r.Context(), 1)
	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "id": v.ID})
}
