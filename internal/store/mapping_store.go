package store

import (
	"context"
	"time"
)

// Mapping origin values. Bridge-origin entries were created by relaying an
// agent message out through the transport; device-origin entries came from
// the phone itself.
const (
	OriginBridge = "bridge"
	OriginDevice = "device"
)

// MessageMapping correlates one transport message with its platform message.
// The (SessionID, TransportMessageID) pair is unique.
type MessageMapping struct {
	SessionID          string    `json:"sessionId"`
	TransportMessageID string    `json:"transportMessageId"`
	PlatformMessageID  int       `json:"platformMessageId"`
	ConversationID     int       `json:"conversationId"`
	Status             int       `json:"status"`
	Origin             string    `json:"origin"`
	Created            time.Time `json:"created"`
}

// MappingStore is the durable mirror of the in-memory mapping table. The
// engine reads through memory; the store exists so correlations survive a
// restart within the retention window.
type MappingStore interface {
	Upsert(ctx context.Context, m MessageMapping) error
	GetByTransportID(ctx context.Context, sessionID, transportMessageID string) (*MessageMapping, error)
	GetByPlatformID(ctx context.Context, sessionID string, platformMessageID int) (*MessageMapping, error)
	SetStatus(ctx context.Context, sessionID, transportMessageID string, status int) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSession(ctx context.Context, sessionID string) ([]MessageMapping, error)
}
