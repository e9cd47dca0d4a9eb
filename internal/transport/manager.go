// Package transport runs the WhatsApp side of the bridge: one socket client
// per session on top of a shared whatsmeow device container.
package transport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/media"
	"github.com/bridgelabs/wawoot/internal/store"
)

// ErrSessionNotFound is returned for operations on unknown sessions.
var ErrSessionNotFound = errors.New("transport: session not found")

// EventSink receives session lifecycle notifications (QR codes, connection
// changes). The HTTP layer fans them out to websocket subscribers.
type EventSink interface {
	SessionEvent(sessionID, kind string, payload map[string]any)
}

// Dispatcher receives translated message and receipt events. Implemented by
// the bridge registry.
type Dispatcher interface {
	DispatchInbound(msg bridge.InboundMessage)
	DispatchStatus(ev bridge.StatusEvent)
}

// ManagerConfig wires a transport manager.
type ManagerConfig struct {
	// DB is the shared database handle; the device container lives in the
	// same database as the rest of the bridge state.
	DB *sql.DB
	// Dialect is the whatsmeow sqlstore dialect, "postgres" or "sqlite3".
	Dialect string

	Sessions   store.SessionStore
	Dispatcher Dispatcher
	Events     EventSink

	// Debug enables whatsmeow wire logging.
	Debug  bool
	Logger *slog.Logger
}

// Manager owns every live session client.
type Manager struct {
	cfg       ManagerConfig
	container *sqlstore.Container
	log       *slog.Logger
	waLog     waLog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds the manager and runs the device container migrations.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	level := "WARN"
	if cfg.Debug {
		level = "DEBUG"
	}
	wl := waLog.Stdout("transport", level, false)

	container := sqlstore.NewWithDB(cfg.DB, cfg.Dialect, wl)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade device store: %w", err)
	}

	return &Manager{
		cfg:       cfg,
		container: container,
		log:       log,
		waLog:     wl,
		sessions:  make(map[string]*Session),
	}, nil
}

// StartAll reconnects every registered session at boot. Sessions that never
// completed pairing are skipped; they reconnect when the operator requests
// a new QR code.
func (m *Manager) StartAll(ctx context.Context) error {
	registered, err := m.cfg.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, reg := range registered {
		if reg.DeviceJID == "" {
			m.log.Info("session not paired, skipping reconnect", "session", reg.SessionID)
			continue
		}
		if _, err := m.Connect(ctx, reg.SessionID); err != nil {
			m.log.Error("session reconnect failed", "session", reg.SessionID, "error", err)
		}
	}
	return nil
}

// Register creates a session record. The session connects on the first
// Connect call, which also produces the pairing QR when no device exists.
func (m *Manager) Register(ctx context.Context, sessionID string) error {
	return m.cfg.Sessions.Put(ctx, store.TransportSession{SessionID: sessionID})
}

// Connect brings a session online, creating the client if needed.
func (m *Manager) Connect(ctx context.Context, sessionID string) (*Session, error) {
	reg, err := m.cfg.Sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	m.mu.Lock()
	if s, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		if !s.Connected() {
			if err := s.Connect(ctx); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
	m.mu.Unlock()

	device, err := m.deviceFor(ctx, reg.DeviceJID)
	if err != nil {
		return nil, err
	}
	s := newSession(sessionID, whatsmeow.NewClient(device, m.waLog), m, m.log)
	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()

	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) deviceFor(ctx context.Context, deviceJID string) (*wastore.Device, error) {
	if deviceJID == "" {
		return m.container.NewDevice(), nil
	}
	jid, err := types.ParseJID(deviceJID)
	if err != nil {
		m.log.Warn("stored device address invalid, pairing fresh", "jid", deviceJID, "error", err)
		return m.container.NewDevice(), nil
	}
	device, err := m.container.GetDevice(ctx, jid)
	if err != nil || device == nil {
		m.log.Warn("stored device missing, pairing fresh", "jid", deviceJID)
		return m.container.NewDevice(), nil
	}
	return device, nil
}

// Session returns a live session.
func (m *Manager) Session(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, ErrSessionNotFound
}

// Logout unlinks the device and removes the session client. The session
// record stays so the operator can pair again under the same id.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	s, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	if err := s.Logout(ctx); err != nil {
		return err
	}
	m.dropSession(ctx, sessionID)
	return nil
}

// Delete removes the session entirely, including its registration.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if s, err := m.Session(sessionID); err == nil {
		if err := s.Logout(ctx); err != nil {
			m.log.Warn("logout during delete failed", "session", sessionID, "error", err)
		}
		m.dropSession(ctx, sessionID)
	}
	return m.cfg.Sessions.Delete(ctx, sessionID)
}

func (m *Manager) dropSession(ctx context.Context, sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if err := m.cfg.Sessions.SetConnected(ctx, sessionID, false); err != nil {
		m.log.Warn("session state write failed", "session", sessionID, "error", err)
	}
}

// Status summarizes one session for the HTTP API.
type Status struct {
	SessionID   string `json:"sessionId"`
	Registered  bool   `json:"registered"`
	Connected   bool   `json:"connected"`
	LoggedIn    bool   `json:"loggedIn"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// StatusOf reports the live and stored state of a session.
func (m *Manager) StatusOf(ctx context.Context, sessionID string) (Status, error) {
	reg, err := m.cfg.Sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, ErrSessionNotFound
	}
	if err != nil {
		return Status{}, fmt.Errorf("load session: %w", err)
	}
	st := Status{
		SessionID:   sessionID,
		Registered:  true,
		PhoneNumber: reg.PhoneNumber,
		DisplayName: reg.DisplayName,
	}
	if s, err := m.Session(sessionID); err == nil {
		st.Connected = s.Connected()
		st.LoggedIn = s.LoggedIn()
	}
	return st, nil
}

// SetDispatcher installs the bridge-side event receiver. The manager and
// the registry reference each other, so the dispatcher is wired after both
// exist. Events arriving before that are dropped.
func (m *Manager) SetDispatcher(d Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Dispatcher = d
}

func (m *Manager) dispatcher() Dispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Dispatcher
}

// ConnectSession is Connect without exposing the session handle.
func (m *Manager) ConnectSession(ctx context.Context, sessionID string) error {
	_, err := m.Connect(ctx, sessionID)
	return err
}

// QRFor returns the current pairing QR code as a data URL, or empty when
// the session is paired or no code has arrived yet.
func (m *Manager) QRFor(sessionID string) (string, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return "", err
	}
	return s.QR(), nil
}

// PairCodeFor requests a phone-number pairing code for an unpaired session.
func (m *Manager) PairCodeFor(ctx context.Context, sessionID, phone string) (string, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return "", err
	}
	return s.PairCode(ctx, phone)
}

// ListStatuses reports every registered session.
func (m *Manager) ListStatuses(ctx context.Context) ([]Status, error) {
	registered, err := m.cfg.Sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Status, 0, len(registered))
	for _, reg := range registered {
		st := Status{
			SessionID:   reg.SessionID,
			Registered:  true,
			PhoneNumber: reg.PhoneNumber,
			DisplayName: reg.DisplayName,
		}
		if s, err := m.Session(reg.SessionID); err == nil {
			st.Connected = s.Connected()
			st.LoggedIn = s.LoggedIn()
		}
		out = append(out, st)
	}
	return out, nil
}

// Stop disconnects every session client.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Disconnect()
		delete(m.sessions, id)
	}
}

func (m *Manager) emit(sessionID, kind string, payload map[string]any) {
	if m.cfg.Events != nil {
		m.cfg.Events.SessionEvent(sessionID, kind, payload)
	}
}

// --- bridge.Transport ---

// SendText relays text; implemented in send.go on the session client.
func (m *Manager) SendText(ctx context.Context, sessionID, toJID, content string, quoted *bridge.QuotedRef) (string, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return "", err
	}
	return s.sendText(ctx, toJID, content, quoted)
}

// SendMedia relays one attachment.
func (m *Manager) SendMedia(ctx context.Context, sessionID, toJID string, att media.Attachment, caption string) (string, error) {
	s, err := m.Session(sessionID)
	if err != nil {
		return "", err
	}
	return s.sendMedia(ctx, toJID, att, caption)
}

// MarkRead acknowledges messages on the device side.
func (m *Manager) MarkRead(ctx context.Context, sessionID, chatJID, senderJID string, messageIDs []string) error {
	s, err := m.Session(sessionID)
	if err != nil {
		return err
	}
	return s.markRead(ctx, chatJID, senderJID, messageIDs)
}
