package bridge

import (
	"context"

	"github.com/bridgelabs/wawoot/internal/chatwoot"
	"github.com/bridgelabs/wawoot/internal/media"
)

// Transport is the WhatsApp-side surface the engine drives. Implemented by
// the transport manager; faked in tests.
type Transport interface {
	// SendText delivers a text message and returns the transport message id.
	SendText(ctx context.Context, sessionID, toJID, content string, quoted *QuotedRef) (string, error)
	// SendMedia delivers one attachment. Image and video sends carry the
	// caption inline; other categories ignore it.
	SendMedia(ctx context.Context, sessionID, toJID string, att media.Attachment, caption string) (string, error)
	// MarkRead acknowledges messages as read on the device side.
	MarkRead(ctx context.Context, sessionID, chatJID, senderJID string, messageIDs []string) error
}

// AgentAPI is the authenticated account-API surface the engine needs.
// *chatwoot.AgentClient satisfies it.
type AgentAPI interface {
	SearchContacts(ctx context.Context, query string) ([]chatwoot.Contact, error)
	ContactConversations(ctx context.Context, contactID int) ([]chatwoot.Conversation, error)
	CreateMessage(ctx context.Context, conversationID int, content, direction, sourceID string) (*chatwoot.Message, error)
	CreateReply(ctx context.Context, conversationID int, content, direction, sourceID string, replyToMessageID int) (*chatwoot.Message, error)
	CreateMessageWithAttachments(ctx context.Context, conversationID int, content, direction, sourceID string, attachments []chatwoot.OutgoingAttachment) (*chatwoot.Message, error)
	UpdateMessageStatus(ctx context.Context, conversationID, messageID int, status string) error
}

// PublicAPI is the unauthenticated inbox-API surface the engine needs.
// *chatwoot.PublicClient satisfies it.
type PublicAPI interface {
	CreateContact(ctx context.Context, inboxIdentifier string, contact chatwoot.NewContact) (*chatwoot.Contact, error)
	CreateConversation(ctx context.Context, inboxIdentifier, contactSourceID string) (*chatwoot.Conversation, error)
	CreateMessage(ctx context.Context, inboxIdentifier, contactSourceID string, conversationID int, content string) (*chatwoot.Message, error)
	CreateMessageWithAttachments(ctx context.Context, inboxIdentifier, contactSourceID string, conversationID int, content string, attachments []chatwoot.OutgoingAttachment) (*chatwoot.Message, error)
}

// MediaProcessor normalizes attachment payloads in both directions.
// *media.Transcoder satisfies it.
type MediaProcessor interface {
	// Download fetches a webhook attachment by URL.
	Download(ctx context.Context, url, reportedMime, originalName string) (*media.Attachment, error)
	// ProcessTransportMedia normalizes bytes fetched from the device side.
	ProcessTransportMedia(data []byte, mime, messageID string) (*media.Attachment, error)
}
