package bridge

import (
	"context"
	"fmt"

	"github.com/bridgelabs/wawoot/internal/chatwoot"
	"github.com/bridgelabs/wawoot/internal/media"
	"github.com/bridgelabs/wawoot/internal/store"
)

// unsupportedPlaceholder is posted for message kinds the bridge cannot
// render (polls, locations, contact cards and the like) so the agent still
// sees that something arrived.
const unsupportedPlaceholder = "[Unsupported message type]"

func (e *Engine) processInbound(ctx context.Context, msg InboundMessage) {
	// Sends made by the bridge itself echo back as device messages; the
	// mapping already exists, so there is nothing to post.
	if entry, ok := e.mappings.byTransportID(msg.MessageID); ok && entry.origin == store.OriginBridge {
		return
	}
	if msg.PhoneNumber == "" {
		e.log.Warn("inbound message without counterpart number", "message", msg.MessageID)
		return
	}

	// Self messages only mirror into conversations that already exist.
	// Contact messages run the full chain and create what is missing.
	var res resolution
	if msg.FromMe {
		found, err := e.resolver.lookup(ctx, msg.PhoneNumber)
		if err != nil {
			e.log.Error("identity resolution failed", "phone", msg.PhoneNumber, "error", err)
			return
		}
		if found == nil {
			e.log.Info("self message for unknown counterpart dropped",
				"phone", msg.PhoneNumber, "message", msg.MessageID)
			return
		}
		res = *found
	} else {
		var err error
		res, err = e.resolver.resolve(ctx, msg.PhoneNumber, msg.PushName)
		if err != nil {
			e.log.Error("identity resolution failed", "phone", msg.PhoneNumber, "error", err)
			return
		}
	}
	e.convPhone[res.conversationID] = msg.PhoneNumber
	e.convChat[res.conversationID] = msg.ChatJID

	content := msg.Content
	if msg.Unsupported {
		content = unsupportedPlaceholder
	}

	if msg.FromMe {
		e.postSelfMessage(ctx, msg, res, content)
		return
	}
	e.postContactMessage(ctx, msg, res, content)
}

// postSelfMessage mirrors a message the operator sent from the phone. It
// appears as an agent message and is immediately read, since the device
// that sent it has obviously seen it.
func (e *Engine) postSelfMessage(ctx context.Context, msg InboundMessage, res resolution, content string) {
	var created *chatwoot.Message
	var err error

	if msg.Media != nil {
		created, err = e.postSelfMedia(ctx, msg, res, content)
	} else {
		created, err = e.agent.CreateMessage(ctx, res.conversationID, content, "outgoing", msg.MessageID)
	}
	if err != nil {
		e.log.Error("self message post failed", "message", msg.MessageID, "error", err)
		// The cached identity may point at a conversation the platform no
		// longer has; the next message re-resolves.
		e.resolver.invalidate(msg.PhoneNumber)
		return
	}

	e.mappings.put(ctx, &mappingEntry{
		transportID:    msg.MessageID,
		platformID:     created.ID,
		conversationID: res.conversationID,
		chatJID:        msg.ChatJID,
		senderJID:      msg.SenderJID,
		status:         StatusRead,
		origin:         store.OriginDevice,
		created:        msg.Timestamp,
	})
	if err := e.agent.UpdateMessageStatus(ctx, res.conversationID, created.ID, statusNames[StatusRead]); err != nil {
		e.log.Warn("self message status push failed", "message", created.ID, "error", err)
	}
}

func (e *Engine) postSelfMedia(ctx context.Context, msg InboundMessage, res resolution, content string) (*chatwoot.Message, error) {
	att, err := e.fetchInboundMedia(ctx, msg)
	if err != nil {
		return e.agent.CreateMessage(ctx, res.conversationID,
			mediaFallbackText(content, msg.Media.Mime), "outgoing", msg.MessageID)
	}
	return e.agent.CreateMessageWithAttachments(ctx, res.conversationID, content, "outgoing", msg.MessageID,
		[]chatwoot.OutgoingAttachment{{Data: att.Data, Filename: att.Filename, Mime: att.Mime}})
}

// postContactMessage relays a contact message into the conversation. Replies
// that quote a correlated message thread onto it; everything else goes in
// through the public inbox API as a plain incoming message.
func (e *Engine) postContactMessage(ctx context.Context, msg InboundMessage, res resolution, content string) {
	var created *chatwoot.Message
	var err error

	switch {
	case msg.Media != nil:
		created, err = e.postContactMedia(ctx, msg, res, content)
	case msg.QuotedID != "":
		if quoted, ok := e.mappings.byTransportID(msg.QuotedID); ok && quoted.platformID != 0 {
			created, err = e.agent.CreateReply(ctx, res.conversationID, content, "incoming", msg.MessageID, quoted.platformID)
			break
		}
		// Quote target expired or unknown; degrade to a plain message.
		created, err = e.public.CreateMessage(ctx, e.tenant.InboxIdentifier, res.sourceID, res.conversationID, content)
	default:
		created, err = e.public.CreateMessage(ctx, e.tenant.InboxIdentifier, res.sourceID, res.conversationID, content)
	}
	if err != nil {
		e.log.Error("contact message post failed", "message", msg.MessageID, "error", err)
		e.resolver.invalidate(msg.PhoneNumber)
		return
	}

	e.mappings.put(ctx, &mappingEntry{
		transportID:    msg.MessageID,
		platformID:     created.ID,
		conversationID: res.conversationID,
		chatJID:        msg.ChatJID,
		senderJID:      msg.SenderJID,
		status:         StatusDelivered,
		origin:         store.OriginDevice,
		created:        msg.Timestamp,
		unreadTracked:  true,
	})
}

func (e *Engine) postContactMedia(ctx context.Context, msg InboundMessage, res resolution, content string) (*chatwoot.Message, error) {
	att, err := e.fetchInboundMedia(ctx, msg)
	if err != nil {
		return e.public.CreateMessage(ctx, e.tenant.InboxIdentifier, res.sourceID, res.conversationID,
			mediaFallbackText(content, msg.Media.Mime))
	}
	return e.public.CreateMessageWithAttachments(ctx, e.tenant.InboxIdentifier, res.sourceID, res.conversationID, content,
		[]chatwoot.OutgoingAttachment{{Data: att.Data, Filename: att.Filename, Mime: att.Mime}})
}

func (e *Engine) fetchInboundMedia(ctx context.Context, msg InboundMessage) (*chatwoot.OutgoingAttachment, error) {
	data, err := msg.Media.Fetch(ctx)
	if err != nil {
		e.log.Warn("media fetch failed", "message", msg.MessageID, "error", err)
		return nil, err
	}
	processed, err := e.media.ProcessTransportMedia(data, msg.Media.Mime, msg.MessageID)
	if err != nil {
		e.log.Warn("media processing failed", "message", msg.MessageID, "error", err)
		return nil, err
	}
	return &chatwoot.OutgoingAttachment{
		Data:     processed.Data,
		Filename: processed.Filename,
		Mime:     processed.Mime,
	}, nil
}

// mediaFallbackText is posted when inbound media cannot be relayed, so the
// conversation still records what kind of message arrived. Device media
// rarely carries a filename, so the note names the category instead.
func mediaFallbackText(caption, mime string) string {
	note := fmt.Sprintf("[%s download failed]", categoryLabel(media.CategoryOf(mime)))
	if caption == "" {
		return note
	}
	return caption + "\n\n" + note
}

func categoryLabel(c media.Category) string {
	switch c {
	case media.CategoryImage:
		return "Image"
	case media.CategoryVideo:
		return "Video"
	case media.CategoryAudio:
		return "Audio"
	case media.CategoryDocument:
		return "Document"
	case media.CategorySticker:
		return "Sticker"
	default:
		return "Media"
	}
}
