package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	eventdomain "pulsewatch/internal/event/domain"
	"pulsewatch/internal/presence"
	projectdomain "pulsewatch/internal/project/domain"
	"pulsewatch/internal/retention"
	"pulsewatch/internal/security"
	visitdomain "pulsewatch/internal/visit/domain"
)

type mockProjectRepo struct {
	byKeyID map[string]*projectdomain.Project
}

func (m *mockProjectRepo) GetByID(context.Context, string) (*projectdomain.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) GetByAPIKeyID(_ context.Context, keyID string) (*projectdomain.Project, error) {
	return m.byKeyID[keyID], nil
}

func (m *mockProjectRepo) ListWithRetention(context.Context) ([]*projectdomain.Project, error) {
	out := make([]*projectdomain.Project, 0, len(m.byKeyID))
	for _, p := range m.byKeyID {
		if p.RetentionEnabled() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjectRepo) Create(context.Context, *projectdomain.Project) error { return nil }

type mockEventRepo struct {
	saved  []*eventdomain.Event
	nextID int64
}

func (m *mockEventRepo) Save(ctx context.Context, e *eventdomain.Event) error {
	return m.SaveBatch(ctx, []*eventdomain.Event{e})
}

func (m *mockEventRepo) SaveBatch(_ context.Context, events []*eventdomain.Event) error {
	for _, e := range events {
		m.nextID++
		e.ID = m.nextID
		m.saved = append(m.saved, e)
	}
	return nil
}

func (m *mockEventRepo) GetByID(context.Context, int64) (*eventdomain.Event, error) {
	return nil, nil
}

func (m *mockEventRepo) ListByProject(context.Context, string, int32, int32) ([]*eventdomain.Event, error) {
	return m.saved, nil
}

func (m *mockEventRepo) Delete(context.Context, int64) (bool, error) { return false, nil }

type mockVisitRepo struct {
	saved []*visitdomain.Visit
}

func (m *mockVisitRepo) Save(_ context.Context, v *visitdomain.Visit) error {
	v.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, v)
	return nil
}

func (m *mockVisitRepo) ListByProject(context.Context, string, int32, int32) ([]*visitdomain.Visit, error) {
	return m.saved, nil
}

func (m *mockVisitRepo) DeleteOlderThan(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	handler  http.Handler
	apiKey   string
	tokens   *security.TokenProvider
	events   *mockEventRepo
	visits   *mockVisitRepo
	presence *presence.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	plaintext, keyID, hash, err := security.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	projects := &mockProjectRepo{byKeyID: map[string]*projectdomain.Project{
		keyID: {ID: "proj-1", Name: "Test", APIKeyID: keyID, APIKeyHash: hash},
	}}
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	events := &mockEventRepo{}
	visits := &mockVisitRepo{}
	store := presence.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := Deps{
		Projects:      projects,
		Presence:      store,
		Events:        events,
		Visits:        visits,
		Tokens:        tokens,
		Sweeper:       retention.NewSweeper(projects, visits, logger),
		CleanupSecret: "sweep-secret",
		Logger:        logger,
	}
	return &testEnv{
		handler:  NewRouter(deps),
		apiKey:   plaintext,
		tokens:   tokens,
		events:   events,
		visits:   visits,
		presence: store,
	}
}

func (e *testEnv) do(method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestIngestRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/heartbeat", map[string]string{"sessionId": "s"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no key: expected 401, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/heartbeat", map[string]string{"sessionId": "s"},
		map[string]string{"x-api-key": "pw_deadbeef_wrongsecret"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad key: expected 401, got %d", rr.Code)
	}
}

func TestIngestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"x-api-key": env.apiKey}

	rr := env.do(http.MethodPost, "/heartbeat", map[string]string{"sessionId": "sess-1"}, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("heartbeat: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/events", map[string]any{
		"events": []map[string]any{{"level": "error", "message": "boom"}},
	}, auth)
	if rr.Code != http.StatusCreated {
		t.Fatalf("events: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(env.events.saved) != 1 {
		t.Errorf("expected 1 stored event, got %d", len(env.events.saved))
	}

	rr = env.do(http.MethodPost, "/page-visits", map[string]any{
		"url": "https://example.com/", "pathname": "/",
	}, auth)
	if rr.Code != http.StatusCreated {
		t.Fatalf("page-visits: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	n, _ := env.presence.CountOnline(context.Background(), "proj-1")
	if n != 1 {
		t.Errorf("expected 1 online session after heartbeat, got %d", n)
	}
}

func TestAPIKeyViaAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/heartbeat", map[string]string{"sessionId": "s"},
		map[string]string{"Authorization": "Bearer " + env.apiKey})
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with bearer API key, got %d", rr.Code)
	}
}

func TestCORSPreflightNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/heartbeat", "/events", "/page-visits"} {
		rr := env.do(http.MethodOptions, path, nil, map[string]string{
			"Origin":                        "https://customer.example",
			"Access-Control-Request-Method": "POST",
		})
		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", path, rr.Code)
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s: missing Access-Control-Allow-Origin", path)
		}
		if rr.Header().Get("Access-Control-Allow-Headers") == "" {
			t.Errorf("%s: missing Access-Control-Allow-Headers", path)
		}
	}
}

func TestDashboardRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/online-users?projectId=proj-1", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rr.Code)
	}

	token, _, _, err := env.tokens.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	rr = env.do(http.MethodGet, "/online-users?projectId=proj-1", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCleanupRequiresSharedSecret(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/page-visits/cleanup", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no secret: expected 401, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/page-visits/cleanup", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/page-visits/cleanup", nil,
		map[string]string{"Authorization": "Bearer sweep-secret"})
	if rr.Code != http.StatusOK {
		t.Errorf("right secret: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
