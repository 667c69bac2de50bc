// Package handler implements the dashboard read/management HTTP surface.
// All routes here sit behind access-token auth, never the ingestion API key.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	eventdomain "pulsewatch/internal/event/domain"
	eventrepo "pulsewatch/internal/event/repository"
	"pulsewatch/internal/httpapi"
	"pulsewatch/internal/presence"
	visitdomain "pulsewatch/internal/visit/domain"
	visitrepo "pulsewatch/internal/visit/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Handler serves presence reads, event browsing, and event deletion for the
// dashboard frontend.
type Handler struct {
	presence presence.Store
	events   eventrepo.Repository
	visits   visitrepo.Repository
}

// NewHandler returns a dashboard handler.
func NewHandler(store presence.Store, events eventrepo.Repository, visits visitrepo.Repository) *Handler {
	return &Handler{presence: store, events: events, visits: visits}
}

// OnlineUsers returns the live session count for a project.
func (h *Handler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		httpapi.ValidationFailed(w, map[string]string{"projectId": "required"})
		return
	}
	count, err := h.presence.CountOnline(r.Context(), projectID)
	if err != nil {
		httpapi.Internal(w, "count online", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"count": count})
}

// OnlineSessions returns the live session ids for a project.
func (h *Handler) OnlineSessions(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		httpapi.ValidationFailed(w, map[string]string{"projectId": "required"})
		return
	}
	sessions, err := h.presence.ListOnline(r.Context(), projectID)
	if err != nil {
		httpapi.Internal(w, "list online", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// ListEvents returns a page of a project's events, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		httpapi.ValidationFailed(w, map[string]string{"projectId": "required"})
		return
	}
	limit, offset, fields := pagination(r)
	if len(fields) > 0 {
		httpapi.ValidationFailed(w, fields)
		return
	}
	events, err := h.events.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		httpapi.Internal(w, "list events", err)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

// DeleteEvent removes a single event by id. 404 when no such event exists.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpapi.ValidationFailed(w, map[string]string{"id": "must be an integer"})
		return
	}
	deleted, err := h.events.Delete(r.Context(), id)
	if err != nil {
		httpapi.Internal(w, "delete event", err)
		return
	}
	if !deleted {
		httpapi.NotFound(w)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ListPageVisits returns a page of a project's visits, newest first.
func (h *Handler) ListPageVisits(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		httpapi.ValidationFailed(w, map[string]string{"projectId": "required"})
		return
	}
	limit, offset, fields := pagination(r)
	if len(fields) > 0 {
		httpapi.ValidationFailed(w, fields)
		return
	}
	visits, err := h.visits.ListByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		httpapi.Internal(w, "list visits", err)
		return
	}
	out := make([]visitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, toVisitResponse(v))
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"visits": out})
}

// eventResponse is the wire shape of an event in dashboard responses.
type eventResponse struct {
	ID         int64           `json:"id"`
	ProjectID  string          `json:"projectId"`
	Timestamp  time.Time       `json:"timestamp"`
	Level      string          `json:"level"`
	Message    string          `json:"message"`
	Stack      *string         `json:"stack,omitempty"`
	UserAgent  *string         `json:"userAgent,omitempty"`
	URL        *string         `json:"url,omitempty"`
	SessionID  *string         `json:"sessionId,omitempty"`
	UserID     *string         `json:"userId,omitempty"`
	Tags       json.RawMessage `json:"tags,omitempty"`
	Extra      json.RawMessage `json:"extra,omitempty"`
	DurationMS *int64          `json:"durationMs,omitempty"`
	StartedAt  *time.Time      `json:"startedAt,omitempty"`
	Screenshot *string         `json:"screenshot,omitempty"`
	ClickTrail json.RawMessage `json:"clickTrail,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toEventResponse(e *eventdomain.Event) eventResponse {
	return eventResponse{
		ID:         e.ID,
		ProjectID:  e.ProjectID,
		Timestamp:  e.Timestamp,
		Level:      e.Level,
		Message:    e.Message,
		Stack:      e.Stack,
		UserAgent:  e.UserAgent,
		URL:        e.URL,
		SessionID:  e.SessionID,
		UserID:     e.UserID,
		Tags:       e.Tags,
		Extra:      e.Extra,
		DurationMS: e.DurationMS,
		StartedAt:  e.StartedAt,
		Screenshot: e.Screenshot,
		ClickTrail: e.ClickTrail,
		CreatedAt:  e.CreatedAt,
	}
}

// visitResponse is the wire shape of a page visit in dashboard responses.
type visitResponse struct {
	ID         int64      `json:"id"`
	ProjectID  string     `json:"projectId"`
	URL        string     `json:"url"`
	Pathname   string     `json:"pathname"`
	Referrer   *string    `json:"referrer,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	SessionID  *string    `json:"sessionId,omitempty"`
	UserID     *string    `json:"userId,omitempty"`
	DurationMS *int64     `json:"durationMs,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toVisitResponse(v *visitdomain.Visit) visitResponse {
	return visitResponse{
		ID:         v.ID,
		ProjectID:  v.ProjectID,
		URL:        v.URL,
		Pathname:   v.Pathname,
		Referrer:   v.Referrer,
		UserAgent:  v.UserAgent,
		SessionID:  v.SessionID,
		UserID:     v.UserID,
		DurationMS: v.DurationMS,
		Timestamp:  v.Timestamp,
		CreatedAt:  v.CreatedAt,
	}
}

// pagination parses limit/offset query params, applying defaults and the page cap.
func pagination(r *http.Request) (limit, offset int32, fields map[string]string) {
	fields = map[string]string{}
	limit = defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			fields["limit"] = "must be a positive integer"
		} else {
			limit = int32(n)
			if limit > maxPageSize {
				limit = maxPageSize
			}
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			fields["offset"] = "must be a non-negative integer"
		} else {
			offset = int32(n)
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return limit, offset, fields
}
