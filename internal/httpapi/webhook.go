package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/chatwoot"
)

const (
	respReceived  = "Webhook received!"
	respDuplicate = "Duplicate webhook ignored!"
)

// WebhookSink routes a decoded platform event to its session engine.
type WebhookSink interface {
	HandleWebhook(ctx context.Context, sessionID string, ev chatwoot.Event) (bridge.WebhookOutcome, error)
}

// WebhookHandler receives Chatwoot webhook deliveries. Chatwoot retries on
// non-2xx, so every understood event answers 200 even when it is discarded.
type WebhookHandler struct {
	sink    WebhookSink
	limiter *rateTable
	log     *slog.Logger
}

// NewWebhookHandler creates the webhook endpoint. rpm limits deliveries per
// session per minute; <= 0 disables the limit.
func NewWebhookHandler(sink WebhookSink, rpm int, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{sink: sink, limiter: newRateTable(rpm), log: log}
}

func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/{sessionID}", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	if !h.limiter.allow(sessionID) {
		h.log.Warn("webhook rate limited", "session", sessionID)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ev, err := chatwoot.ParseWebhook(body)
	if err != nil {
		h.log.Warn("webhook payload rejected", "session", sessionID, "error", err)
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	outcome, err := h.sink.HandleWebhook(r.Context(), sessionID, ev)
	if errors.Is(err, bridge.ErrConfigMissing) {
		writeError(w, http.StatusBadRequest, "no chatwoot config for session")
		return
	}
	if err != nil {
		h.log.Error("webhook processing failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	if outcome == bridge.OutcomeDuplicate {
		writeText(w, http.StatusOK, respDuplicate)
		return
	}
	writeText(w, http.StatusOK, respReceived)
}
