package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// Reinitializer tears down a session's engine after a binding change.
type Reinitializer interface {
	Reinitialize(sessionID string)
}

// TenantsHandler manages the per-session Chatwoot bindings. Tokens are never
// echoed back, responses only report their presence.
type TenantsHandler struct {
	tenants store.TenantConfigStore
	reinit  Reinitializer
	token   string
	log     *slog.Logger
}

func NewTenantsHandler(tenants store.TenantConfigStore, reinit Reinitializer, token string, log *slog.Logger) *TenantsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TenantsHandler{tenants: tenants, reinit: reinit, token: token, log: log}
}

func (h *TenantsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sessions/{id}/chatwoot", bearerAuth(h.token, h.handleGet))
	mux.HandleFunc("PUT /v1/sessions/{id}/chatwoot", bearerAuth(h.token, h.handlePut))
	mux.HandleFunc("DELETE /v1/sessions/{id}/chatwoot", bearerAuth(h.token, h.handleDelete))
}

func (h *TenantsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cfg, err := h.tenants.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no chatwoot config for session")
		return
	}
	if err != nil {
		h.log.Error("tenants.get", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load config")
		return
	}
	writeJSON(w, http.StatusOK, maskTenant(*cfg))
}

func (h *TenantsHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		BaseURL         string `json:"baseUrl"`
		AccountID       string `json:"accountId"`
		InboxIdentifier string `json:"inboxIdentifier"`
		AgentToken      string `json:"agentToken"`
		BotToken        string `json:"botToken"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	cfg := store.TenantConfig{
		SessionID:       id,
		BaseURL:         body.BaseURL,
		AccountID:       body.AccountID,
		InboxIdentifier: body.InboxIdentifier,
		AgentToken:      body.AgentToken,
		BotToken:        body.BotToken,
		Updated:         time.Now().UTC(),
	}
	if !cfg.Valid() {
		writeError(w, http.StatusBadRequest,
			"baseUrl, accountId, inboxIdentifier, agentToken, and botToken are required")
		return
	}

	if existing, err := h.tenants.Get(r.Context(), id); err == nil {
		cfg.Created = existing.Created
	} else {
		cfg.Created = cfg.Updated
	}

	if err := h.tenants.Put(r.Context(), cfg); err != nil {
		h.log.Error("tenants.put", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}

	h.reinit.Reinitialize(id)
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "updated"})
}

func (h *TenantsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.tenants.Delete(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error("tenants.delete", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete config")
		return
	}
	h.reinit.Reinitialize(id)
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "deleted"})
}

func maskTenant(cfg store.TenantConfig) map[string]interface{} {
	return map[string]interface{}{
		"sessionId":       cfg.SessionID,
		"baseUrl":         cfg.BaseURL,
		"accountId":       cfg.AccountID,
		"inboxIdentifier": cfg.InboxIdentifier,
		"hasAgentToken":   cfg.AgentToken != "",
		"hasBotToken":     cfg.BotToken != "",
		"created":         cfg.Created,
		"updated":         cfg.Updated,
	}
}
