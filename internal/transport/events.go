package transport

import (
	"context"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/bridgelabs/wawoot/internal/bridge"
)

// translateMessage converts a socket message event into the bridge's shape.
// Returns false for events the bridge never sees: group and broadcast
// traffic, protocol messages, reactions and edits.
func (s *Session) translateMessage(evt *events.Message) (bridge.InboundMessage, bool) {
	info := evt.Info
	if info.Chat.Server != types.DefaultUserServer {
		// Groups, status broadcasts and newsletters are out of scope.
		return bridge.InboundMessage{}, false
	}
	if evt.Message == nil || evt.Message.GetProtocolMessage() != nil || evt.Message.GetReactionMessage() != nil {
		return bridge.InboundMessage{}, false
	}

	msg := bridge.InboundMessage{
		SessionID:   s.id,
		MessageID:   info.ID,
		ChatJID:     info.Chat.String(),
		SenderJID:   info.Sender.String(),
		PhoneNumber: info.Chat.User,
		PushName:    info.PushName,
		FromMe:      info.IsFromMe,
		Timestamp:   info.Timestamp,
	}

	switch {
	case evt.Message.GetConversation() != "":
		msg.Content = evt.Message.GetConversation()

	case evt.Message.GetExtendedTextMessage() != nil:
		ext := evt.Message.GetExtendedTextMessage()
		msg.Content = ext.GetText()
		msg.QuotedID = ext.GetContextInfo().GetStanzaID()

	case evt.Message.GetImageMessage() != nil:
		img := evt.Message.GetImageMessage()
		msg.Content = img.GetCaption()
		msg.QuotedID = img.GetContextInfo().GetStanzaID()
		msg.Media = s.inboundMedia(img, img.GetMimetype(), "")

	case evt.Message.GetVideoMessage() != nil:
		vid := evt.Message.GetVideoMessage()
		msg.Content = vid.GetCaption()
		msg.QuotedID = vid.GetContextInfo().GetStanzaID()
		msg.Media = s.inboundMedia(vid, vid.GetMimetype(), "")

	case evt.Message.GetAudioMessage() != nil:
		aud := evt.Message.GetAudioMessage()
		msg.Media = s.inboundMedia(aud, aud.GetMimetype(), "")

	case evt.Message.GetDocumentMessage() != nil:
		doc := evt.Message.GetDocumentMessage()
		msg.Content = doc.GetCaption()
		msg.QuotedID = doc.GetContextInfo().GetStanzaID()
		msg.Media = s.inboundMedia(doc, doc.GetMimetype(), doc.GetFileName())

	case evt.Message.GetStickerMessage() != nil:
		stk := evt.Message.GetStickerMessage()
		msg.Media = s.inboundMedia(stk, stk.GetMimetype(), "")

	case evt.Message.GetContactMessage() != nil,
		evt.Message.GetLocationMessage() != nil,
		evt.Message.GetLiveLocationMessage() != nil,
		evt.Message.GetPollCreationMessageV3() != nil:
		msg.Unsupported = true

	default:
		msg.Unsupported = true
	}

	if msg.Content == "" && msg.Media == nil && !msg.Unsupported {
		return bridge.InboundMessage{}, false
	}
	return msg, true
}

// inboundMedia wraps a downloadable message part in a lazy fetch. The
// payload is pulled only when the message actually gets relayed.
func (s *Session) inboundMedia(part whatsmeow.DownloadableMessage, mime, filename string) *bridge.InboundMedia {
	return &bridge.InboundMedia{
		Mime:     mime,
		Filename: filename,
		Fetch: func(ctx context.Context) ([]byte, error) {
			return s.client.Download(ctx, part)
		},
	}
}

// translateReceipt converts a delivery receipt. Only delivered and read
// receipts matter to the bridge; the sent transition is recorded at send
// time.
func (s *Session) translateReceipt(evt *events.Receipt) (bridge.StatusEvent, bool) {
	var status int
	switch evt.Type {
	case types.ReceiptTypeDelivered:
		status = bridge.StatusDelivered
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
		status = bridge.StatusRead
	default:
		return bridge.StatusEvent{}, false
	}
	if len(evt.MessageIDs) == 0 {
		return bridge.StatusEvent{}, false
	}
	return bridge.StatusEvent{
		SessionID:  s.id,
		ChatJID:    evt.Chat.String(),
		SenderJID:  evt.Sender.String(),
		MessageIDs: evt.MessageIDs,
		Status:     status,
		Timestamp:  evt.Timestamp,
	}, true
}

// quotedContext builds the context info for a reply send.
func quotedContext(quoted *bridge.QuotedRef, chatJID string) *waE2E.ContextInfo {
	if quoted == nil {
		return nil
	}
	participant := quoted.SenderJID
	if participant == "" {
		participant = chatJID
	}
	return &waE2E.ContextInfo{
		StanzaID:      proto.String(quoted.MessageID),
		Participant:   proto.String(participant),
		QuotedMessage: &waE2E.Message{Conversation: proto.String(quoted.Content)},
	}
}
