package transport

import (
	"log/slog"
	"testing"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/media"
)

func testSession() *Session {
	return &Session{id: "s1", log: slog.Default()}
}

func msgEvent(chat types.JID, m *waE2E.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: chat},
			ID:            "WAID1",
			PushName:      "Bob",
			Timestamp:     time.Now(),
		},
		Message: m,
	}
}

func userChat() types.JID {
	return types.NewJID("5511999990000", types.DefaultUserServer)
}

func TestTranslateTextMessage(t *testing.T) {
	s := testSession()
	got, ok := s.translateMessage(msgEvent(userChat(), &waE2E.Message{Conversation: proto.String("hello")}))
	if !ok {
		t.Fatal("text message dropped")
	}
	if got.Content != "hello" || got.PhoneNumber != "5511999990000" || got.MessageID != "WAID1" {
		t.Errorf("got %+v", got)
	}
	if got.Media != nil || got.Unsupported {
		t.Errorf("plain text flagged: %+v", got)
	}
}

func TestTranslateReplyCarriesQuotedID(t *testing.T) {
	s := testSession()
	m := &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
		Text: proto.String("replying"),
		ContextInfo: &waE2E.ContextInfo{
			StanzaID: proto.String("WAORIG"),
		},
	}}
	got, ok := s.translateMessage(msgEvent(userChat(), m))
	if !ok {
		t.Fatal("reply dropped")
	}
	if got.QuotedID != "WAORIG" || got.Content != "replying" {
		t.Errorf("got %+v", got)
	}
}

func TestTranslateImageCarriesMedia(t *testing.T) {
	s := testSession()
	m := &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
		Caption:  proto.String("look"),
		Mimetype: proto.String("image/jpeg"),
	}}
	got, ok := s.translateMessage(msgEvent(userChat(), m))
	if !ok {
		t.Fatal("image dropped")
	}
	if got.Media == nil || got.Media.Mime != "image/jpeg" || got.Content != "look" {
		t.Errorf("got %+v media %+v", got, got.Media)
	}
}

func TestTranslateSkipsGroupsAndProtocol(t *testing.T) {
	s := testSession()
	group := types.NewJID("12036304", types.GroupServer)

	if _, ok := s.translateMessage(msgEvent(group, &waE2E.Message{Conversation: proto.String("hi")})); ok {
		t.Error("group message not skipped")
	}
	if _, ok := s.translateMessage(msgEvent(userChat(), &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{}})); ok {
		t.Error("protocol message not skipped")
	}
}

func TestTranslateUnsupportedKind(t *testing.T) {
	s := testSession()
	m := &waE2E.Message{LocationMessage: &waE2E.LocationMessage{}}
	got, ok := s.translateMessage(msgEvent(userChat(), m))
	if !ok || !got.Unsupported {
		t.Errorf("location: ok=%v msg=%+v", ok, got)
	}
}

func TestTranslateReceipt(t *testing.T) {
	s := testSession()
	chat := userChat()

	tests := []struct {
		typ    types.ReceiptType
		want   int
		wantOK bool
	}{
		{types.ReceiptTypeDelivered, bridge.StatusDelivered, true},
		{types.ReceiptTypeRead, bridge.StatusRead, true},
		{types.ReceiptTypeReadSelf, bridge.StatusRead, true},
		{types.ReceiptTypeSender, 0, false},
	}
	for _, tt := range tests {
		ev := &events.Receipt{
			MessageSource: types.MessageSource{Chat: chat, Sender: chat},
			MessageIDs:    []types.MessageID{"WAID1"},
			Timestamp:     time.Now(),
			Type:          tt.typ,
		}
		got, ok := s.translateReceipt(ev)
		if ok != tt.wantOK {
			t.Errorf("type %q: ok = %v, want %v", tt.typ, ok, tt.wantOK)
			continue
		}
		if ok && (got.Status != tt.want || got.MessageIDs[0] != "WAID1") {
			t.Errorf("type %q: got %+v", tt.typ, got)
		}
	}
}

func TestUploadTypeFor(t *testing.T) {
	tests := []struct {
		cat  media.Category
		want whatsmeow.MediaType
	}{
		{media.CategoryImage, whatsmeow.MediaImage},
		{media.CategorySticker, whatsmeow.MediaImage},
		{media.CategoryVideo, whatsmeow.MediaVideo},
		{media.CategoryAudio, whatsmeow.MediaAudio},
		{media.CategoryDocument, whatsmeow.MediaDocument},
	}
	for _, tt := range tests {
		if got := uploadTypeFor(tt.cat); got != tt.want {
			t.Errorf("uploadTypeFor(%s) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestQuotedContext(t *testing.T) {
	if quotedContext(nil, "x@s.whatsapp.net") != nil {
		t.Error("nil quote should produce nil context")
	}
	ci := quotedContext(&bridge.QuotedRef{MessageID: "WAORIG"}, "x@s.whatsapp.net")
	if ci.GetStanzaID() != "WAORIG" {
		t.Errorf("stanza id = %q", ci.GetStanzaID())
	}
	if ci.GetParticipant() != "x@s.whatsapp.net" {
		t.Errorf("participant fallback = %q", ci.GetParticipant())
	}
}
