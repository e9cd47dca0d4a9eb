package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/bridgelabs/wawoot/internal/chatwoot"
	"github.com/bridgelabs/wawoot/internal/media"
	"github.com/bridgelabs/wawoot/internal/store"
)

// WebhookOutcome is the synchronous verdict for one webhook delivery.
type WebhookOutcome int

const (
	// OutcomeProcessed covers accepted events, including ones that were
	// valid but required no action.
	OutcomeProcessed WebhookOutcome = iota
	// OutcomeDuplicate marks a replay suppressed by the dedup filter.
	OutcomeDuplicate
)

// HandleWebhook runs a decoded platform event through the session worker
// and returns its verdict. The call blocks until the worker has processed
// the event, so the HTTP layer can answer duplicates distinctly.
func (e *Engine) HandleWebhook(ctx context.Context, ev chatwoot.Event) (WebhookOutcome, error) {
	outcome := OutcomeProcessed
	err := e.submitAndWait(ctx, func(ctx context.Context) {
		outcome = e.processWebhook(ctx, ev)
	})
	if err != nil {
		return OutcomeProcessed, err
	}
	return outcome, nil
}

func (e *Engine) processWebhook(ctx context.Context, ev chatwoot.Event) WebhookOutcome {
	switch v := ev.(type) {
	case chatwoot.MessageCreated:
		return e.processMessageEvent(ctx, v.WebhookMessage, false)
	case chatwoot.MessageUpdated:
		return e.processMessageEvent(ctx, v.WebhookMessage, true)
	case chatwoot.ConversationTypingOn:
		// Agents type into conversations they have not caught up on; only
		// a zero unread count means everything has been seen.
		if v.UnreadCount == 0 {
			e.markConversationRead(ctx, v.ConversationID)
		}
		return OutcomeProcessed
	case chatwoot.ConversationUpdated:
		if v.UnreadCount == 0 && v.AgentLastSeenAt != 0 {
			e.markConversationRead(ctx, v.ConversationID)
		}
		return OutcomeProcessed
	default:
		return OutcomeProcessed
	}
}

// processMessageEvent relays an agent message out through the transport.
// Created and updated events share the path: attachment messages often
// arrive as a bare created event first and gain their attachments in the
// updated event, so relay happens on whichever delivery first carries
// something sendable.
func (e *Engine) processMessageEvent(ctx context.Context, msg chatwoot.WebhookMessage, updated bool) WebhookOutcome {
	if !msg.Outgoing || msg.Private {
		return OutcomeProcessed
	}
	if msg.SenderName == e.botSenderName {
		// Echo of a message the bridge created itself.
		return OutcomeProcessed
	}
	if msg.Content == "" && len(msg.Attachments) == 0 {
		// A bare created event waits for the updated delivery that carries
		// the attachments; an updated event still empty never will, so the
		// agent gets told instead of the message vanishing silently.
		if updated {
			e.postEmptyMessageNotice(ctx, msg)
		}
		return OutcomeProcessed
	}
	if e.dedup.check(fingerprint(msg.ID, msg.ConversationID, e.sessionID)) {
		return OutcomeDuplicate
	}
	if _, ok := e.mappings.byPlatformID(msg.ID); ok {
		// Already relayed; an updated event for a sent message.
		return OutcomeProcessed
	}

	toJID, err := e.destinationFor(msg)
	if err != nil {
		e.log.Error("webhook relay failed", "message", msg.ID, "error", err)
		return OutcomeProcessed
	}

	var transportID string
	if len(msg.Attachments) > 0 {
		transportID = e.relayAttachments(ctx, msg, toJID)
	} else {
		transportID = e.relayText(ctx, msg, toJID)
	}
	if transportID == "" {
		return OutcomeProcessed
	}

	e.mappings.put(ctx, &mappingEntry{
		transportID:    transportID,
		platformID:     msg.ID,
		conversationID: msg.ConversationID,
		chatJID:        toJID,
		status:         StatusPending,
		origin:         store.OriginBridge,
	})
	// The transport send returned after the server acknowledged it.
	if entry, applied := e.mappings.advanceStatus(ctx, transportID, StatusSent); applied {
		if err := e.agent.UpdateMessageStatus(ctx, entry.conversationID, entry.platformID, statusNames[StatusSent]); err != nil {
			e.log.Warn("status push failed", "message", entry.platformID, "error", err)
		}
	}
	return OutcomeProcessed
}

// emptyMessageNotice is posted back into the conversation when an agent
// message ends up with nothing relayable, so the agent learns the contact
// never received it.
const emptyMessageNotice = "❌ Unsupported message type or empty message"

func (e *Engine) postEmptyMessageNotice(ctx context.Context, msg chatwoot.WebhookMessage) {
	if _, err := e.agent.CreateMessage(ctx, msg.ConversationID, emptyMessageNotice, "outgoing", ""); err != nil {
		e.log.Warn("empty message notice post failed", "message", msg.ID, "error", err)
	}
}

func (e *Engine) relayText(ctx context.Context, msg chatwoot.WebhookMessage, toJID string) string {
	var quoted *QuotedRef
	if msg.ReplyToID != 0 {
		if target, ok := e.mappings.byPlatformID(msg.ReplyToID); ok {
			quoted = &QuotedRef{MessageID: target.transportID, SenderJID: target.senderJID}
		}
	}
	id, err := e.transport.SendText(ctx, e.sessionID, toJID, msg.Content, quoted)
	if err != nil {
		e.log.Error("text relay failed", "message", msg.ID, "error", err)
		return ""
	}
	return id
}

// relayAttachments sends each attachment. Images and videos carry the text
// as an inline caption; for other kinds the text follows as its own
// message, since the device cannot caption them.
func (e *Engine) relayAttachments(ctx context.Context, msg chatwoot.WebhookMessage, toJID string) string {
	var firstID string
	captionUsed := false

	for _, ref := range msg.Attachments {
		att, err := e.media.Download(ctx, ref.DataURL, "", ref.FileName)
		if err != nil {
			e.log.Warn("attachment download failed", "message", msg.ID, "file", ref.FileName, "error", err)
			e.relayAttachmentFailure(ctx, toJID, ref.FileName)
			continue
		}

		caption := ""
		if !captionUsed && (att.Category == media.CategoryImage || att.Category == media.CategoryVideo) {
			caption = msg.Content
			captionUsed = true
		}
		id, err := e.transport.SendMedia(ctx, e.sessionID, toJID, *att, caption)
		if err != nil {
			e.log.Warn("attachment relay failed", "message", msg.ID, "file", ref.FileName, "error", err)
			e.relayAttachmentFailure(ctx, toJID, ref.FileName)
			continue
		}
		if firstID == "" {
			firstID = id
		}
	}

	if msg.Content != "" && !captionUsed {
		id, err := e.transport.SendText(ctx, e.sessionID, toJID, msg.Content, nil)
		if err != nil {
			e.log.Error("follow-up text relay failed", "message", msg.ID, "error", err)
		} else if firstID == "" {
			firstID = id
		}
	}
	return firstID
}

func (e *Engine) relayAttachmentFailure(ctx context.Context, toJID, filename string) {
	note := fmt.Sprintf("[attachment could not be delivered: %s]", filename)
	if _, err := e.transport.SendText(ctx, e.sessionID, toJID, note, nil); err != nil {
		e.log.Warn("failure note relay failed", "error", err)
	}
}

// destinationFor derives the device-side address for a conversation, from
// the webhook payload first and the addresses learned on inbound traffic
// as fallback.
func (e *Engine) destinationFor(msg chatwoot.WebhookMessage) (string, error) {
	if jid, ok := e.convChat[msg.ConversationID]; ok && jid != "" {
		return jid, nil
	}
	phone := strings.TrimPrefix(msg.ContactPhone, "+")
	if phone == "" {
		phone = e.convPhone[msg.ConversationID]
	}
	if phone == "" {
		return "", fmt.Errorf("no counterpart address for conversation %d", msg.ConversationID)
	}
	return phone + "@s.whatsapp.net", nil
}

// markConversationRead acknowledges all tracked unread contact messages in
// a conversation on the device side.
func (e *Engine) markConversationRead(ctx context.Context, conversationID int) {
	entries := e.mappings.takeUnread(conversationID)
	if len(entries) == 0 {
		return
	}

	// Group by chat so each MarkRead call targets one thread.
	byChat := make(map[string][]*mappingEntry)
	for _, entry := range entries {
		byChat[entry.chatJID] = append(byChat[entry.chatJID], entry)
	}
	for chatJID, group := range byChat {
		ids := make([]string, len(group))
		senderJID := group[0].senderJID
		for i, entry := range group {
			ids[i] = entry.transportID
		}
		if err := e.transport.MarkRead(ctx, e.sessionID, chatJID, senderJID, ids); err != nil {
			e.log.Warn("mark read failed", "chat", chatJID, "error", err)
			continue
		}
		for _, entry := range group {
			e.mappings.advanceStatus(ctx, entry.transportID, StatusRead)
		}
	}
}
