package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tandem/api/internal/authpw"
)

func (m *memStore) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.PasswordHash = passwordHash
	m.users[userID] = user
	return nil
}

func newTestServer() (*HTTPServer, *Service, *memStore) {
	svc, ms := newTestService()
	svc.UsePasswordAuth(authpw.NewService(ms))
	return NewHTTPServer(svc, "*"), svc, ms
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeJSON(t, rr)
	if payload["ok"] != true {
		t.Fatalf("expected ok=true, got %v", payload["ok"])
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("expected CORS origin *, got %q", origin)
	}
}

func TestReadyEndpoint(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSON(t, rr)
	if payload["status"] != "ready" {
		t.Fatalf("expected ready, got %v", payload["status"])
	}
}

func TestOptionsShortCircuits(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodOptions, "/api/projects", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS, got %d", rr.Code)
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	server, _, _ := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "ada@example.com", "password": "hunter2secure", "name": "Ada",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSON(t, rr)
	if payload["token"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("expected token pair, got %v", payload)
	}
	user, _ := payload["user"].(map[string]any)
	if user["name"] != "Ada" {
		t.Fatalf("expected user name Ada, got %v", user)
	}

	// Duplicate signup conflicts.
	rr = doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "ada@example.com", "password": "hunter2secure", "name": "Ada",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rr.Code)
	}

	// Wrong password rejected.
	rr = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "ada@example.com", "password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad signin: expected 401, got %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "ada@example.com", "password": "hunter2secure",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	server, svc, ms := newTestServer()
	user := seedUser(ms, "Ada", "ada@example.com")
	session, err := svc.StartSession(context.Background(), user)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	rr := doJSON(t, server, http.MethodPost, "/api/projects", session.Token, map[string]any{
		"name": "Launch", "description": "the big one",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeJSON(t, rr)
	projectID, _ := created["id"].(string)
	if projectID == "" {
		t.Fatalf("no project id in %v", created)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/projects/"+projectID, session.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}
	got := decodeJSON(t, rr)
	if got["role"] != "owner" || got["name"] != "Launch" {
		t.Fatalf("unexpected project payload: %v", got)
	}

	rr = doJSON(t, server, http.MethodPut, "/api/projects/"+projectID+"/status", session.Token, map[string]any{"status": "archived"})
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodDelete, "/api/projects/"+projectID, session.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	if _, err := ms.GetProject(context.Background(), projectID); err == nil {
		t.Fatal("project should be gone")
	}
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/projects", "garbage", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rr.Code)
	}
}

func TestAnonymousViewsReturnEmpty(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/views/board", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeJSON(t, rr)
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty items, got %v", payload)
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _, _ := newTestServer()
	rr := doJSON(t, server, http.MethodGet, "/api/widgets", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	payload := decodeJSON(t, rr)
	if payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND code, got %v", payload)
	}
}

func TestSessionEndpointReflectsToken(t *testing.T) {
	server, svc, ms := newTestServer()

	rr := doJSON(t, server, http.MethodGet, "/api/session", "", nil)
	payload := decodeJSON(t, rr)
	if payload["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", payload)
	}

	user := seedUser(ms, "Ada", "ada@example.com")
	session, err := svc.StartSession(context.Background(), user)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	rr = doJSON(t, server, http.MethodGet, "/api/session", session.Token, nil)
	payload = decodeJSON(t, rr)
	if payload["authenticated"] != true {
		t.Fatalf("expected authenticated, got %v", payload)
	}
}
