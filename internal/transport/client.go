package transport

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"
	"golang.org/x/time/rate"
)

// sendBurst and sendInterval pace outgoing traffic per session. WhatsApp
// throttles chatty devices; a small burst with a steady refill keeps relays
// prompt without tripping that.
const (
	sendBurst    = 3
	sendInterval = 500 * time.Millisecond
)

// Session is one live WhatsApp client.
type Session struct {
	id      string
	client  *whatsmeow.Client
	mgr     *Manager
	log     *slog.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	qrDataURL string
}

func newSession(id string, client *whatsmeow.Client, mgr *Manager, log *slog.Logger) *Session {
	s := &Session{
		id:      id,
		client:  client,
		mgr:     mgr,
		log:     log.With("session", id),
		limiter: rate.NewLimiter(rate.Every(sendInterval), sendBurst),
	}
	client.AddEventHandler(s.handleEvent)
	return s
}

// Connect opens the socket. For unpaired devices it also starts the QR
// pairing loop; the current code is available via QR until pairing
// completes.
func (s *Session) Connect(ctx context.Context) error {
	if s.client.IsConnected() {
		return nil
	}
	if s.client.Store.ID == nil {
		qrChan, err := s.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go s.consumeQR(qrChan)
		return nil
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (s *Session) consumeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			png, err := qrcode.Encode(evt.Code, qrcode.Medium, 256)
			if err != nil {
				s.log.Error("qr encode failed", "error", err)
				continue
			}
			dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
			s.mu.Lock()
			s.qrDataURL = dataURL
			s.mu.Unlock()
			s.mgr.emit(s.id, "qr", map[string]any{"qrCode": dataURL})
		case "success":
			s.setQR("")
			s.mgr.emit(s.id, "pair-success", nil)
		case "timeout":
			s.setQR("")
			s.mgr.emit(s.id, "qr-timeout", nil)
		}
	}
}

func (s *Session) setQR(v string) {
	s.mu.Lock()
	s.qrDataURL = v
	s.mu.Unlock()
}

// QR returns the current pairing code as a PNG data URL, empty when the
// session is paired or no code is pending.
func (s *Session) QR() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qrDataURL
}

// PairCode requests a phone-number pairing code as an alternative to the QR
// flow. The session must be connected and unpaired.
func (s *Session) PairCode(ctx context.Context, phone string) (string, error) {
	if s.client.Store.ID != nil {
		return "", fmt.Errorf("session already paired")
	}
	code, err := s.client.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, "Chrome (Linux)")
	if err != nil {
		return "", fmt.Errorf("pair phone: %w", err)
	}
	return code, nil
}

// Connected reports socket state.
func (s *Session) Connected() bool {
	return s.client.IsConnected()
}

// LoggedIn reports whether a device is paired and authenticated.
func (s *Session) LoggedIn() bool {
	return s.client.IsLoggedIn()
}

// Disconnect closes the socket without unlinking the device.
func (s *Session) Disconnect() {
	s.client.Disconnect()
}

// Logout unlinks the device from the phone and clears the stored binding.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.client.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.mgr.cfg.Sessions.SetDevice(ctx, s.id, "", "", ""); err != nil {
		s.log.Warn("device state clear failed", "error", err)
	}
	return nil
}

func (s *Session) handleEvent(rawEvt any) {
	ctx := context.Background()
	switch evt := rawEvt.(type) {
	case *events.Connected:
		s.onConnected(ctx)
	case *events.Disconnected:
		s.mgr.emit(s.id, "disconnected", nil)
	case *events.LoggedOut:
		s.log.Info("device logged out", "reason", evt.Reason.String())
		s.mgr.emit(s.id, "logged-out", map[string]any{"reason": evt.Reason.String()})
		// The device credentials are gone; clear the binding so the next
		// connect starts a fresh pairing.
		if err := s.mgr.cfg.Sessions.SetDevice(ctx, s.id, "", "", ""); err != nil {
			s.log.Warn("device state clear failed", "error", err)
		}
		s.mgr.dropSession(ctx, s.id)
	case *events.Message:
		if msg, ok := s.translateMessage(evt); ok {
			if d := s.mgr.dispatcher(); d != nil {
				d.DispatchInbound(msg)
			}
		}
	case *events.Receipt:
		if ev, ok := s.translateReceipt(evt); ok {
			if d := s.mgr.dispatcher(); d != nil {
				d.DispatchStatus(ev)
			}
		}
	}
}

func (s *Session) onConnected(ctx context.Context) {
	jid := ""
	phone := ""
	name := ""
	if id := s.client.Store.ID; id != nil {
		jid = id.String()
		phone = id.User
		name = s.client.Store.PushName
	}
	if err := s.mgr.cfg.Sessions.SetDevice(ctx, s.id, jid, phone, name); err != nil {
		s.log.Warn("device state write failed", "error", err)
	}
	if err := s.mgr.cfg.Sessions.SetConnected(ctx, s.id, true); err != nil {
		s.log.Warn("session state write failed", "error", err)
	}
	s.log.Info("session connected", "phone", phone)
	s.mgr.emit(s.id, "connected", map[string]any{"phoneNumber": phone})
}
