package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/chatwoot"
)

type fakeSink struct {
	outcome  bridge.WebhookOutcome
	err      error
	sessions []string
	events   []chatwoot.Event
}

func (f *fakeSink) HandleWebhook(ctx context.Context, sessionID string, ev chatwoot.Event) (bridge.WebhookOutcome, error) {
	f.sessions = append(f.sessions, sessionID)
	f.events = append(f.events, ev)
	return f.outcome, f.err
}

const createdPayload = `{
	"event": "message_created",
	"id": 901,
	"content": "hello",
	"message_type": "outgoing",
	"private": false,
	"conversation": {"id": 42, "meta": {"sender": {"phone_number": "+5511999990000"}}},
	"sender": {"name": "Alice"}
}`

func postWebhook(t *testing.T, sink WebhookSink, rpm int, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(":0", nil, NewWebhookHandler(sink, rpm, nil))
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+session, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.BuildMux().ServeHTTP(rec, req)
	return rec
}

func TestWebhookProcessed(t *testing.T) {
	sink := &fakeSink{outcome: bridge.OutcomeProcessed}
	rec := postWebhook(t, sink, 0, "tenant-a", createdPayload)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), respReceived) {
		t.Errorf("body = %s, want %q", rec.Body, respReceived)
	}
	if len(sink.sessions) != 1 || sink.sessions[0] != "tenant-a" {
		t.Errorf("sink sessions = %v", sink.sessions)
	}
	if _, ok := sink.events[0].(chatwoot.MessageCreated); !ok {
		t.Errorf("event type = %T, want MessageCreated", sink.events[0])
	}
}

func TestWebhookDuplicate(t *testing.T) {
	sink := &fakeSink{outcome: bridge.OutcomeDuplicate}
	rec := postWebhook(t, sink, 0, "tenant-a", createdPayload)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), respDuplicate) {
		t.Errorf("body = %s, want %q", rec.Body, respDuplicate)
	}
}

func TestWebhookConfigMissing(t *testing.T) {
	sink := &fakeSink{err: bridge.ErrConfigMissing}
	rec := postWebhook(t, sink, 0, "unbound", createdPayload)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no chatwoot config") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	sink := &fakeSink{}
	rec := postWebhook(t, sink, 0, "tenant-a", "{not json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(sink.events) != 0 {
		t.Errorf("sink received %d events, want 0", len(sink.events))
	}
}

func TestWebhookRateLimit(t *testing.T) {
	sink := &fakeSink{outcome: bridge.OutcomeProcessed}
	srv := NewServer(":0", nil, NewWebhookHandler(sink, 6, nil))
	mux := srv.BuildMux()

	var last int
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook/noisy", strings.NewReader(createdPayload))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("10th delivery status = %d, want 429", last)
	}

	// The bucket is per session, other tenants keep flowing.
	req := httptest.NewRequest(http.MethodPost, "/webhook/quiet", strings.NewReader(createdPayload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other session status = %d, want 200", rec.Code)
	}
}
