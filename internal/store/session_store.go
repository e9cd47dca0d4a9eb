package store

import (
	"context"
	"time"
)

// TransportSession is a registered WhatsApp session. Rows persist across
// restarts so the server can reconnect every previously linked device on
// boot without operator action.
type TransportSession struct {
	SessionID   string    `json:"sessionId"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	// DeviceJID is the device address assigned at pairing, empty until the
	// first successful login.
	DeviceJID string    `json:"deviceJid,omitempty"`
	Connected bool      `json:"connected"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
}

// SessionStore manages transport session registrations.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*TransportSession, error)
	Put(ctx context.Context, sess TransportSession) error
	SetDevice(ctx context.Context, sessionID, deviceJID, phoneNumber, displayName string) error
	SetConnected(ctx context.Context, sessionID string, connected bool) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]TransportSession, error)
}
