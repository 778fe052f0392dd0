package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/api/internal/store"
)

func newTestServer(fs dataStore) *HTTPServer {
	return NewHTTPServer(newTestService(fs), nil, "*", nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response["ok"] != true {
		t.Errorf("expected ok=true, got %v", response["ok"])
	}
}

func TestSignUpReturnsSessionContract(t *testing.T) {
	var insertedEmail string
	fs := &fakeStore{
		insertUserFn: func(_ context.Context, user store.User) (store.User, error) {
			insertedEmail = user.Email
			return user, nil
		},
	}
	server := newTestServer(fs)

	body := bytes.NewBufferString(`{"email":"  Avery@Example.com ","displayName":"Avery","password":"hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if insertedEmail != "avery@example.com" {
		t.Errorf("expected normalized email, got %q", insertedEmail)
	}

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	for _, key := range []string{"token", "refreshToken", "userId", "userName", "expiresAt"} {
		if _, ok := response[key]; !ok {
			t.Errorf("missing %q in session payload", key)
		}
	}
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	fs := &fakeStore{
		getUserByEmailFn: func(context.Context, string) (store.User, error) {
			return store.User{ID: "user-1"}, nil
		},
	}
	server := newTestServer(fs)

	body := bytes.NewBufferString(`{"email":"avery@example.com","displayName":"Avery","password":"hunter2hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/workspaces", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestProtectedRouteRejectsGarbageToken(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/workspaces", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWorkspaceFlowOverHTTP(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, nil, "*", nil)

	session, err := svc.openSession(context.Background(), store.User{ID: "user-1", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	body := bytes.NewBufferString(`{"name":"Roadmap"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/workspaces", body)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response["name"] != "Roadmap" {
		t.Errorf("expected name Roadmap, got %v", response["name"])
	}
}

func TestMoveCardOverHTTP(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("X", "col-todo", 0)
	m.addCard("Y", "col-todo", 1)
	svc := newTestService(m)
	server := NewHTTPServer(svc, nil, "*", nil)

	session, err := svc.openSession(context.Background(), store.User{ID: "user-1", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	body := bytes.NewBufferString(`{"toColumnId":"col-doing","toPosition":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cards/Y/move", body)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response["columnId"] != "col-doing" {
		t.Errorf("expected columnId col-doing, got %v", response["columnId"])
	}
	if response["position"] != float64(0) {
		t.Errorf("expected position 0, got %v", response["position"])
	}
	assertColumn(t, m, "col-todo", []string{"X"})
	assertColumn(t, m, "col-doing", []string{"Y"})
}

func TestErrorPayloadShape(t *testing.T) {
	server := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response["code"] != "NOT_FOUND" {
		t.Errorf("expected code NOT_FOUND, got %v", response["code"])
	}
	if _, ok := response["error"]; !ok {
		t.Error("expected error message field")
	}
}
