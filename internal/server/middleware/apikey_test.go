package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	projectdomain "pulsewatch/internal/project/domain"
	"pulsewatch/internal/security"
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
	return nil, nil
}

func (m *mockProjectRepo) Create(context.Context, *projectdomain.Project) error { return nil }

func newAuthedHandler(t *testing.T) (http.Handler, string) {
	t.Helper()
	plaintext, keyID, hash, err := security.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	repo := &mockProjectRepo{byKeyID: map[string]*projectdomain.Project{
		keyID: {ID: "proj-1", APIKeyID: keyID, APIKeyHash: hash},
	}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetProject(r.Context())
		if !ok || p.ID != "proj-1" {
			t.Error("project not set in context")
		}
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth(repo)(next), plaintext
}

func TestAPIKeyAuthAccepts(t *testing.T) {
	h, key := newAuthedHandler(t)

	for name, set := range map[string]func(*http.Request){
		"x-api-key header": func(r *http.Request) { r.Header.Set("x-api-key", key) },
		"bearer header":    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+key) },
	} {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		set(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, rr.Code)
		}
	}
}

func TestAPIKeyAuthRejects(t *testing.T) {
	h, key := newAuthedHandler(t)

	keyID, _, _ := security.ParseAPIKey(key)
	cases := map[string]func(*http.Request){
		"no key":         func(*http.Request) {},
		"malformed key":  func(r *http.Request) { r.Header.Set("x-api-key", "not-a-key") },
		"unknown key id": func(r *http.Request) { r.Header.Set("x-api-key", "pw_ffffffffffffffff_secret") },
		"wrong secret":   func(r *http.Request) { r.Header.Set("x-api-key", "pw_"+keyID+"_wrong") },
	}
	for name, set := range cases {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		set(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}

func TestSharedSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := SharedSecret("s3cret")(next)

	req := httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("right secret: expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", rr.Code)
	}

	// Empty configured secret never matches, even an empty bearer.
	h = SharedSecret("")(next)
	req = httptest.NewRequest(http.MethodPost, "/cleanup", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("empty secret: expected 401, got %d", rr.Code)
	}
}
