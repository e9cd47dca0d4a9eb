package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/media"
)

// imageDownscaleThreshold is the size above which relayed images are
// re-encoded before upload.
const imageDownscaleThreshold = 2 << 20

func (s *Session) sendText(ctx context.Context, toJID, content string, quoted *bridge.QuotedRef) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	jid, err := types.ParseJID(toJID)
	if err != nil {
		return "", fmt.Errorf("parse recipient: %w", err)
	}

	var msg *waE2E.Message
	if quoted != nil {
		msg = &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text:        proto.String(content),
				ContextInfo: quotedContext(quoted, toJID),
			},
		}
	} else {
		msg = &waE2E.Message{Conversation: proto.String(content)}
	}

	resp, err := s.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("send text: %w", err)
	}
	return string(resp.ID), nil
}

func (s *Session) sendMedia(ctx context.Context, toJID string, att media.Attachment, caption string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	jid, err := types.ParseJID(toJID)
	if err != nil {
		return "", fmt.Errorf("parse recipient: %w", err)
	}

	data := att.Data
	if att.Category == media.CategoryImage && len(data) > imageDownscaleThreshold {
		data = media.DownscaleImage(data)
	}

	uploaded, err := s.client.Upload(ctx, data, uploadTypeFor(att.Category))
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}

	msg := mediaMessage(att, caption, uploaded, uint64(len(data)))
	resp, err := s.client.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("send media: %w", err)
	}
	return string(resp.ID), nil
}

func uploadTypeFor(cat media.Category) whatsmeow.MediaType {
	switch cat {
	case media.CategoryImage, media.CategorySticker:
		return whatsmeow.MediaImage
	case media.CategoryVideo:
		return whatsmeow.MediaVideo
	case media.CategoryAudio:
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func mediaMessage(att media.Attachment, caption string, up whatsmeow.UploadResponse, size uint64) *waE2E.Message {
	switch att.Category {
	case media.CategoryImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(att.Mime),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &size,
		}}
	case media.CategorySticker:
		return &waE2E.Message{StickerMessage: &waE2E.StickerMessage{
			Mimetype:      proto.String(att.Mime),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &size,
		}}
	case media.CategoryVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(att.Mime),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &size,
		}}
	case media.CategoryAudio:
		ptt := strings.Contains(att.Mime, "ogg")
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(att.Mime),
			PTT:           proto.Bool(ptt),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &size,
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			FileName:      proto.String(att.Filename),
			Title:         proto.String(att.Filename),
			Mimetype:      proto.String(att.Mime),
			URL:           &up.URL,
			DirectPath:    &up.DirectPath,
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    &size,
		}}
	}
}

func (s *Session) markRead(ctx context.Context, chatJID, senderJID string, messageIDs []string) error {
	chat, err := types.ParseJID(chatJID)
	if err != nil {
		return fmt.Errorf("parse chat: %w", err)
	}
	sender := chat
	if senderJID != "" {
		if parsed, err := types.ParseJID(senderJID); err == nil {
			sender = parsed
		}
	}
	ids := make([]types.MessageID, len(messageIDs))
	for i, id := range messageIDs {
		ids[i] = types.MessageID(id)
	}
	if err := s.client.MarkRead(ctx, ids, time.Now(), chat, sender); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
