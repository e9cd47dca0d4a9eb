package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBearerAuthGatesManagementAPI(t *testing.T) {
	mgr := newFakeManager()
	mux := NewServer(":0", nil, NewSessionsHandler(mgr, "secret-tok", nil)).BuildMux()

	rec := doRequest(mux, http.MethodGet, "/v1/sessions", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer secret-tok")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, want 200", rec.Code)
	}
}

func TestBearerAuthDisabledWhenUnset(t *testing.T) {
	mgr := newFakeManager()
	mux := NewServer(":0", nil, NewSessionsHandler(mgr, "", nil)).BuildMux()

	rec := doRequest(mux, http.MethodGet, "/v1/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
