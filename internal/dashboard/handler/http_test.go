package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	eventdomain "pulsewatch/internal/event/domain"
	"pulsewatch/internal/presence"
	visitdomain "pulsewatch/internal/visit/domain"
)

type mockEventRepo struct {
	events    []*eventdomain.Event
	lastLimit int32
	lastOff   int32
	deleted   []int64
}

func (m *mockEventRepo) Save(context.Context, *eventdomain.Event) error        { return nil }
func (m *mockEventRepo) SaveBatch(context.Context, []*eventdomain.Event) error { return nil }

func (m *mockEventRepo) GetByID(_ context.Context, id int64) (*eventdomain.Event, error) {
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEventRepo) ListByProject(_ context.Context, projectID string, limit, offset int32) ([]*eventdomain.Event, error) {
	m.lastLimit, m.lastOff = limit, offset
	out := make([]*eventdomain.Event, 0)
	for _, e := range m.events {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEventRepo) Delete(_ context.Context, id int64) (bool, error) {
	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			m.deleted = append(m.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

type mockVisitRepo struct {
	visits []*visitdomain.Visit
}

func (m *mockVisitRepo) Save(context.Context, *visitdomain.Visit) error { return nil }

func (m *mockVisitRepo) ListByProject(_ context.Context, projectID string, _, _ int32) ([]*visitdomain.Visit, error) {
	out := make([]*visitdomain.Visit, 0)
	for _, v := range m.visits {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockVisitRepo) DeleteOlderThan(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func newTestHandler(events *mockEventRepo, visits *mockVisitRepo) (*Handler, *presence.MemoryStore) {
	store := presence.NewMemoryStore()
	if events == nil {
		events = &mockEventRepo{}
	}
	if visits == nil {
		visits = &mockVisitRepo{}
	}
	return NewHandler(store, events, visits), store
}

func TestOnlineUsers(t *testing.T) {
	h, store := newTestHandler(nil, nil)
	ctx := context.Background()
	_ = store.MarkOnline(ctx, "proj-1", "a")
	_ = store.MarkOnline(ctx, "proj-1", "b")
	_ = store.MarkOnline(ctx, "proj-2", "c")

	req := httptest.NewRequest(http.MethodGet, "/online-users?projectId=proj-1", nil)
	rr := httptest.NewRecorder()
	h.OnlineUsers(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected count 2, got %d", resp.Count)
	}
}

func TestOnlineUsersRequiresProject(t *testing.T) {
	h, _ := newTestHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/online-users", nil)
	rr := httptest.NewRecorder()
	h.OnlineUsers(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOnlineSessions(t *testing.T) {
	h, store := newTestHandler(nil, nil)
	_ = store.MarkOnline(context.Background(), "proj-1", "sess-x")

	req := httptest.NewRequest(http.MethodGet, "/online-users/sessions?projectId=proj-1", nil)
	rr := httptest.NewRecorder()
	h.OnlineSessions(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Sessions []string `json:"sessions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0] != "sess-x" {
		t.Errorf("unexpected sessions: %v", resp.Sessions)
	}
}

func TestListEventsPagination(t *testing.T) {
	repo := &mockEventRepo{events: []*eventdomain.Event{
		{ID: 1, ProjectID: "proj-1", Level: "error", Message: "a"},
		{ID: 2, ProjectID: "proj-1", Level: "info", Message: "b"},
		{ID: 3, ProjectID: "proj-2", Level: "info", Message: "c"},
	}}
	h, _ := newTestHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/events?projectId=proj-1", nil)
	rr := httptest.NewRecorder()
	h.ListEvents(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if repo.lastLimit != defaultPageSize {
		t.Errorf("expected default limit %d, got %d", defaultPageSize, repo.lastLimit)
	}
	var resp struct {
		Events []struct {
			ID        int64  `json:"id"`
			ProjectID string `json:"projectId"`
			Level     string `json:"level"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Errorf("expected 2 events for proj-1, got %d", len(resp.Events))
	}
	if resp.Events[0].ProjectID != "proj-1" || resp.Events[0].Level != "error" {
		t.Errorf("event not mapped to wire shape: %+v", resp.Events[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/events?projectId=proj-1&limit=500&offset=10", nil)
	rr = httptest.NewRecorder()
	h.ListEvents(rr, req)
	if repo.lastLimit != maxPageSize {
		t.Errorf("limit not capped: got %d", repo.lastLimit)
	}
	if repo.lastOff != 10 {
		t.Errorf("offset not passed through: got %d", repo.lastOff)
	}

	req = httptest.NewRequest(http.MethodGet, "/events?projectId=proj-1&limit=abc", nil)
	rr = httptest.NewRecorder()
	h.ListEvents(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", rr.Code)
	}
}

func TestDeleteEvent(t *testing.T) {
	repo := &mockEventRepo{events: []*eventdomain.Event{
		{ID: 7, ProjectID: "proj-1", Level: "error", Message: "x"},
	}}
	h, _ := newTestHandler(repo, nil)

	r := chi.NewRouter()
	r.Delete("/events/{id}", h.DeleteEvent)

	req := httptest.NewRequest(http.MethodDelete, "/events/7", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 7 {
		t.Errorf("event not deleted: %v", repo.deleted)
	}

	// Same id again: nothing matches now.
	req = httptest.NewRequest(http.MethodDelete, "/events/7", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing event, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/events/abc", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-integer id, got %d", rr.Code)
	}
}

func TestListPageVisits(t *testing.T) {
	visits := &mockVisitRepo{visits: []*visitdomain.Visit{
		{ID: 1, ProjectID: "proj-1", URL: "https://example.com/", Pathname: "/"},
	}}
	h, _ := newTestHandler(nil, visits)

	req := httptest.NewRequest(http.MethodGet, "/page-visits?projectId=proj-1", nil)
	rr := httptest.NewRecorder()
	h.ListPageVisits(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Visits []struct {
			ID       int64  `json:"id"`
			Pathname string `json:"pathname"`
		} `json:"visits"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Visits) != 1 || resp.Visits[0].Pathname != "/" {
		t.Errorf("unexpected visits payload: %s", rr.Body.String())
	}
}
