package chatwoot

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is a decoded webhook payload. Each payload decodes to exactly one
// variant; payloads with an event name we do not handle decode to Unknown
// so callers can tell "not for us" apart from "malformed".
type Event interface {
	isEvent()
}

// WebhookAttachment is an attachment reference carried on message events.
// The data URL is fetched lazily by whoever relays the message.
type WebhookAttachment struct {
	DataURL  string `json:"data_url"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name"`
}

// WebhookMessage is the message body shared by created and updated events.
type WebhookMessage struct {
	ID             int
	Content        string
	ConversationID int
	Outgoing       bool
	Private        bool
	SenderName     string
	ReplyToID      int
	// ContactPhone is the conversation counterpart's number as the
	// platform stores it, usually with a leading plus sign.
	ContactPhone string
	Attachments  []WebhookAttachment
}

// MessageCreated is an agent message that should be relayed to the contact.
type MessageCreated struct {
	WebhookMessage
}

// MessageUpdated fires when an existing message changes, which for agent
// messages usually means attachments finished processing.
type MessageUpdated struct {
	WebhookMessage
}

// ConversationTypingOn means an agent opened the conversation and started
// typing. The unread count rides along; only a count of zero means the agent
// has actually seen everything.
type ConversationTypingOn struct {
	ConversationID int
	UnreadCount    int
}

// ConversationUpdated carries the unread count and the agent's last-seen
// timestamp. Unlike message events, the platform delivers the conversation
// attributes at the top level of this payload.
type ConversationUpdated struct {
	ConversationID  int
	UnreadCount     int
	AgentLastSeenAt int64
}

// Unknown is a well-formed payload with an event name we do not act on.
type Unknown struct {
	Name string
}

func (MessageCreated) isEvent()       {}
func (MessageUpdated) isEvent()       {}
func (ConversationTypingOn) isEvent() {}
func (ConversationUpdated) isEvent()  {}
func (Unknown) isEvent()              {}

type rawWebhook struct {
	Event             string          `json:"event"`
	ID                json.Number     `json:"id"`
	Content           string          `json:"content"`
	MessageType       any             `json:"message_type"`
	Private           bool            `json:"private"`
	UnreadCount       int             `json:"unread_count"`
	AgentLastSeenAt   json.Number     `json:"agent_last_seen_at"`
	ContentAttributes json.RawMessage `json:"content_attributes"`
	Sender            struct {
		Name string `json:"name"`
	} `json:"sender"`
	Conversation struct {
		ID          json.Number `json:"id"`
		UnreadCount int         `json:"unread_count"`
		Meta        struct {
			Sender struct {
				PhoneNumber string `json:"phone_number"`
				Identifier  string `json:"identifier"`
			} `json:"sender"`
		} `json:"meta"`
	} `json:"conversation"`
	Attachments []WebhookAttachment `json:"attachments"`
}

type rawContentAttributes struct {
	InReplyTo int `json:"in_reply_to"`
}

// ParseWebhook decodes a webhook body into its event variant.
func ParseWebhook(body []byte) (Event, error) {
	var raw rawWebhook
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}

	switch raw.Event {
	case "message_created", "message_updated":
		msg := WebhookMessage{
			ID:             numberToInt(raw.ID),
			Content:        raw.Content,
			ConversationID: numberToInt(raw.Conversation.ID),
			Outgoing:       isOutgoing(raw.MessageType),
			Private:        raw.Private,
			SenderName:     raw.Sender.Name,
			ContactPhone:   raw.Conversation.Meta.Sender.PhoneNumber,
			Attachments:    raw.Attachments,
		}
		if msg.ContactPhone == "" {
			msg.ContactPhone = raw.Conversation.Meta.Sender.Identifier
		}
		if len(raw.ContentAttributes) > 0 {
			var attrs rawContentAttributes
			if err := json.Unmarshal(raw.ContentAttributes, &attrs); err == nil {
				msg.ReplyToID = attrs.InReplyTo
			}
		}
		if raw.Event == "message_created" {
			return MessageCreated{WebhookMessage: msg}, nil
		}
		return MessageUpdated{WebhookMessage: msg}, nil

	case "conversation_typing_on":
		return ConversationTypingOn{
			ConversationID: numberToInt(raw.Conversation.ID),
			UnreadCount:    raw.Conversation.UnreadCount,
		}, nil

	case "conversation_updated":
		// This event is the conversation itself: id, unread_count and
		// agent_last_seen_at sit at the top level, not under "conversation".
		return ConversationUpdated{
			ConversationID:  numberToInt(raw.ID),
			UnreadCount:     raw.UnreadCount,
			AgentLastSeenAt: int64(numberToInt(raw.AgentLastSeenAt)),
		}, nil

	default:
		return Unknown{Name: raw.Event}, nil
	}
}

// isOutgoing handles both wire shapes Chatwoot sends for message_type, the
// string "outgoing" and the numeric enum where 1 means outgoing.
func isOutgoing(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "outgoing"
	case float64:
		return int(t) == 1
	case json.Number:
		n, err := t.Int64()
		return err == nil && n == 1
	default:
		return false
	}
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return v
}
