package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/bridgelabs/wawoot/internal/transport"
)

// SessionManager is the slice of the transport layer the API drives.
type SessionManager interface {
	Register(ctx context.Context, sessionID string) error
	ConnectSession(ctx context.Context, sessionID string) error
	QRFor(sessionID string) (string, error)
	PairCodeFor(ctx context.Context, sessionID, phone string) (string, error)
	StatusOf(ctx context.Context, sessionID string) (transport.Status, error)
	ListStatuses(ctx context.Context) ([]transport.Status, error)
	Logout(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
}

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SessionsHandler manages WhatsApp session lifecycle endpoints.
type SessionsHandler struct {
	mgr   SessionManager
	token string
	log   *slog.Logger
}

func NewSessionsHandler(mgr SessionManager, token string, log *slog.Logger) *SessionsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SessionsHandler{mgr: mgr, token: token, log: log}
}

func (h *SessionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sessions", bearerAuth(h.token, h.handleList))
	mux.HandleFunc("POST /v1/sessions", bearerAuth(h.token, h.handleRegister))
	mux.HandleFunc("GET /v1/sessions/{id}", bearerAuth(h.token, h.handleStatus))
	mux.HandleFunc("POST /v1/sessions/{id}/connect", bearerAuth(h.token, h.handleConnect))
	mux.HandleFunc("GET /v1/sessions/{id}/qr", bearerAuth(h.token, h.handleQR))
	mux.HandleFunc("POST /v1/sessions/{id}/pair", bearerAuth(h.token, h.handlePair))
	mux.HandleFunc("POST /v1/sessions/{id}/logout", bearerAuth(h.token, h.handleLogout))
	mux.HandleFunc("DELETE /v1/sessions/{id}", bearerAuth(h.token, h.handleDelete))
}

func (h *SessionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.mgr.ListStatuses(r.Context())
	if err != nil {
		h.log.Error("sessions.list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": statuses})
}

func (h *SessionsHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if !sessionIDPattern.MatchString(body.SessionID) {
		writeError(w, http.StatusBadRequest, "sessionId must match [a-zA-Z0-9_-]{1,64}")
		return
	}
	if err := h.mgr.Register(r.Context(), body.SessionID); err != nil {
		h.log.Error("sessions.register", "session", body.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": body.SessionID, "status": "registered"})
}

func (h *SessionsHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.StatusOf(r.Context(), r.PathValue("id"))
	if errors.Is(err, transport.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.log.Error("sessions.status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *SessionsHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.mgr.ConnectSession(r.Context(), id); err != nil {
		if errors.Is(err, transport.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.Error("sessions.connect", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to connect session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "connecting"})
}

// handleQR returns the pairing QR as a PNG data URL. The code rotates until
// scanned, so clients poll this endpoint.
func (h *SessionsHandler) handleQR(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	qr, err := h.mgr.QRFor(id)
	if errors.Is(err, transport.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.log.Error("sessions.qr", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read qr code")
		return
	}
	if qr == "" {
		writeError(w, http.StatusNotFound, "no qr code available, session may already be paired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "qr": qr})
}

func (h *SessionsHandler) handlePair(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if body.PhoneNumber == "" {
		writeError(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}
	code, err := h.mgr.PairCodeFor(r.Context(), id, body.PhoneNumber)
	if errors.Is(err, transport.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.log.Error("sessions.pair", "session", id, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "code": code})
}

func (h *SessionsHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.mgr.Logout(r.Context(), id); err != nil {
		if errors.Is(err, transport.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.Error("sessions.logout", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "logged out"})
}

func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.mgr.Delete(r.Context(), id); err != nil {
		h.log.Error("sessions.delete", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id, "status": "deleted"})
}
