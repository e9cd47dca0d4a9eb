package chatwoot

// Contact is a ticketing-platform contact record.
type Contact struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	PhoneNumber    string         `json:"phone_number"`
	Identifier     string         `json:"identifier"`
	ContactInboxes []ContactInbox `json:"contact_inboxes,omitempty"`
}

// ContactInbox links a contact to an inbox; SourceID is the routing
// identifier used by the public conversation API.
type ContactInbox struct {
	SourceID string `json:"source_id"`
	Inbox    *Inbox `json:"inbox,omitempty"`
}

// Inbox is a ticketing-platform inbox. Identifier is the public-API inbox
// identifier, distinct from the numeric ID used by the account API.
type Inbox struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"inbox_identifier"`
}

// Conversation is a ticketing-platform conversation.
type Conversation struct {
	ID      int    `json:"id"`
	InboxID int    `json:"inbox_id"`
	Status  string `json:"status"`
}

// Message is a ticketing-platform message as returned by create calls.
type Message struct {
	ID          int    `json:"id"`
	Content     string `json:"content"`
	MessageType any    `json:"message_type"` // int on app API, string on public API
	SourceID    string `json:"source_id,omitempty"`
}

// contactListEnvelope wraps list responses ({"payload": [...]}).
type contactListEnvelope struct {
	Payload []Contact `json:"payload"`
}

type contactShowEnvelope struct {
	Payload Contact `json:"payload"`
}

type conversationListEnvelope struct {
	Payload []Conversation `json:"payload"`
}

// NewContact is the create-contact request body on the public API.
type NewContact struct {
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// OutgoingAttachment is an attachment uploaded with a message create call.
type OutgoingAttachment struct {
	Data     []byte
	Filename string
	Mime     string
}
