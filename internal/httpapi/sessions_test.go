package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bridgelabs/wawoot/internal/transport"
)

type fakeManager struct {
	registered []string
	connected  []string
	loggedOut  []string
	deleted    []string
	qr         string
	pairCode   string
	statuses   map[string]transport.Status
}

func newFakeManager() *fakeManager {
	return &fakeManager{statuses: make(map[string]transport.Status)}
}

func (f *fakeManager) Register(ctx context.Context, id string) error {
	f.registered = append(f.registered, id)
	f.statuses[id] = transport.Status{SessionID: id, Registered: true}
	return nil
}

func (f *fakeManager) ConnectSession(ctx context.Context, id string) error {
	if _, ok := f.statuses[id]; !ok {
		return transport.ErrSessionNotFound
	}
	f.connected = append(f.connected, id)
	return nil
}

func (f *fakeManager) QRFor(id string) (string, error) {
	if _, ok := f.statuses[id]; !ok {
		return "", transport.ErrSessionNotFound
	}
	return f.qr, nil
}

func (f *fakeManager) PairCodeFor(ctx context.Context, id, phone string) (string, error) {
	if _, ok := f.statuses[id]; !ok {
		return "", transport.ErrSessionNotFound
	}
	return f.pairCode, nil
}

func (f *fakeManager) StatusOf(ctx context.Context, id string) (transport.Status, error) {
	st, ok := f.statuses[id]
	if !ok {
		return transport.Status{}, transport.ErrSessionNotFound
	}
	return st, nil
}

func (f *fakeManager) ListStatuses(ctx context.Context) ([]transport.Status, error) {
	out := make([]transport.Status, 0, len(f.statuses))
	for _, st := range f.statuses {
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeManager) Logout(ctx context.Context, id string) error {
	if _, ok := f.statuses[id]; !ok {
		return transport.ErrSessionNotFound
	}
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

func (f *fakeManager) Delete(ctx context.Context, id string) error {
	delete(f.statuses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func sessionsMux(mgr SessionManager) *http.ServeMux {
	return NewServer(":0", nil, NewSessionsHandler(mgr, "", nil)).BuildMux()
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterSession(t *testing.T) {
	mgr := newFakeManager()
	rec := doRequest(sessionsMux(mgr), http.MethodPost, "/v1/sessions", `{"sessionId":"acme-support"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body)
	}
	if len(mgr.registered) != 1 || mgr.registered[0] != "acme-support" {
		t.Errorf("registered = %v", mgr.registered)
	}
}

func TestRegisterSessionRejectsBadID(t *testing.T) {
	mgr := newFakeManager()
	mux := sessionsMux(mgr)
	for _, id := range []string{"", "has space", "semi;colon", strings.Repeat("x", 70)} {
		body, _ := json.Marshal(map[string]string{"sessionId": id})
		rec := doRequest(mux, http.MethodPost, "/v1/sessions", string(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
	if len(mgr.registered) != 0 {
		t.Errorf("registered = %v, want none", mgr.registered)
	}
}

func TestSessionStatusNotFound(t *testing.T) {
	rec := doRequest(sessionsMux(newFakeManager()), http.MethodGet, "/v1/sessions/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSessionQR(t *testing.T) {
	mgr := newFakeManager()
	mgr.Register(context.Background(), "s1")
	mgr.qr = "data:image/png;base64,abc"

	rec := doRequest(sessionsMux(mgr), http.MethodGet, "/v1/sessions/s1/qr", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["qr"] != mgr.qr {
		t.Errorf("qr = %q", resp["qr"])
	}
}

func TestSessionQRUnavailable(t *testing.T) {
	mgr := newFakeManager()
	mgr.Register(context.Background(), "s1")

	rec := doRequest(sessionsMux(mgr), http.MethodGet, "/v1/sessions/s1/qr", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSessionPairCode(t *testing.T) {
	mgr := newFakeManager()
	mgr.Register(context.Background(), "s1")
	mgr.pairCode = "ABCD-1234"

	rec := doRequest(sessionsMux(mgr), http.MethodPost, "/v1/sessions/s1/pair", `{"phoneNumber":"5511999990000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "ABCD-1234") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	mgr := newFakeManager()
	mgr.Register(context.Background(), "s1")
	mux := sessionsMux(mgr)

	if rec := doRequest(mux, http.MethodPost, "/v1/sessions/s1/connect", ""); rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d", rec.Code)
	}
	if rec := doRequest(mux, http.MethodPost, "/v1/sessions/s1/logout", ""); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := doRequest(mux, http.MethodDelete, "/v1/sessions/s1", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(mgr.connected) != 1 || len(mgr.loggedOut) != 1 || len(mgr.deleted) != 1 {
		t.Errorf("lifecycle calls = %v %v %v", mgr.connected, mgr.loggedOut, mgr.deleted)
	}
}
