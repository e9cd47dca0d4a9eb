// Package bridge implements the message correlation engine that keeps one
// WhatsApp session and one Chatwoot inbox in sync. Each session runs its own
// engine with a single worker goroutine, so all state mutation for a session
// is serialized in arrival order.
package bridge

import (
	"context"
	"time"

	"github.com/bridgelabs/wawoot/internal/media"
)

// Delivery status ladder. Transitions only move upward; a late "delivered"
// after "read" is discarded.
const (
	StatusPending   = 1
	StatusSent      = 2
	StatusDelivered = 3
	StatusRead      = 4
)

// statusNames are the platform-side status strings pushed on transitions.
// Pending is the initial state and is never pushed.
var statusNames = map[int]string{
	StatusSent:      "sent",
	StatusDelivered: "delivered",
	StatusRead:      "read",
}

// InboundMedia is a lazily fetched attachment on an inbound message. Fetch
// downloads and decrypts the payload; it is only called when the message is
// actually relayed.
type InboundMedia struct {
	Mime     string
	Filename string
	Caption  string
	Fetch    func(ctx context.Context) ([]byte, error)
}

// InboundMessage is a message event from the transport side.
type InboundMessage struct {
	SessionID  string
	MessageID  string
	ChatJID    string
	SenderJID  string
	// PhoneNumber is the bare counterpart number, no plus sign.
	PhoneNumber string
	PushName    string
	Content     string
	FromMe      bool
	// QuotedID is the transport id of the message this one replies to.
	QuotedID  string
	Timestamp time.Time
	Media     *InboundMedia
	// Unsupported marks message kinds the bridge cannot render; a
	// placeholder is posted instead of content.
	Unsupported bool
}

// StatusEvent is a delivery receipt from the transport side.
type StatusEvent struct {
	SessionID  string
	ChatJID    string
	SenderJID  string
	MessageIDs []string
	Status     int
	Timestamp  time.Time
}

// QuotedRef points the transport at a message to reply to.
type QuotedRef struct {
	MessageID string
	// Content and SenderJID reconstruct the quote preview on the device.
	Content   string
	SenderJID string
}

// OutboundAttachment is a fetched attachment ready for transport send.
type OutboundAttachment struct {
	Attachment media.Attachment
	Caption    string
}
