package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
)

// PublicClient talks to the unauthenticated public inbox API, acting as the
// transport-side contact. Contact and conversation creation go through here
// because messages created on the public API show up as incoming.
type PublicClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPublicClient builds a public-API client.
func NewPublicClient(baseURL string) *PublicClient {
	return &PublicClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: multipartTimeout},
	}
}

func (c *PublicClient) inboxPath(inboxIdentifier, suffix string) string {
	return fmt.Sprintf("%s/public/api/v1/inboxes/%s%s", c.baseURL, url.PathEscape(inboxIdentifier), suffix)
}

func (c *PublicClient) postJSON(ctx context.Context, rawURL string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, jsonTimeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateContact creates a contact in the inbox. The create response does not
// reliably expose the contact's source id; callers re-search afterwards.
func (c *PublicClient) CreateContact(ctx context.Context, inboxIdentifier string, contact NewContact) (*Contact, error) {
	var created Contact
	if err := c.postJSON(ctx, c.inboxPath(inboxIdentifier, "/contacts"), contact, &created); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return &created, nil
}

// CreateConversation opens a conversation for the contact identified by its
// inbox source id.
func (c *PublicClient) CreateConversation(ctx context.Context, inboxIdentifier, contactSourceID string) (*Conversation, error) {
	u := c.inboxPath(inboxIdentifier, fmt.Sprintf("/contacts/%s/conversations", url.PathEscape(contactSourceID)))
	var conv Conversation
	if err := c.postJSON(ctx, u, map[string]any{}, &conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

// CreateMessage posts a plain incoming message from the contact.
func (c *PublicClient) CreateMessage(ctx context.Context, inboxIdentifier, contactSourceID string, conversationID int, content string) (*Message, error) {
	u := c.inboxPath(inboxIdentifier, fmt.Sprintf("/contacts/%s/conversations/%d/messages", url.PathEscape(contactSourceID), conversationID))
	var msg Message
	if err := c.postJSON(ctx, u, map[string]any{"content": content}, &msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &msg, nil
}

// CreateMessageWithAttachments posts one multipart message per attachment and
// returns the first created message. On multipart failure it falls back to a
// plain text message naming the file that could not be delivered.
func (c *PublicClient) CreateMessageWithAttachments(ctx context.Context, inboxIdentifier, contactSourceID string, conversationID int, content string, attachments []OutgoingAttachment) (*Message, error) {
	if len(attachments) == 0 {
		return c.CreateMessage(ctx, inboxIdentifier, contactSourceID, conversationID, content)
	}

	u := c.inboxPath(inboxIdentifier, fmt.Sprintf("/contacts/%s/conversations/%d/messages", url.PathEscape(contactSourceID), conversationID))

	var first *Message
	for _, att := range attachments {
		msg, err := c.postAttachment(ctx, u, content, att)
		if err != nil {
			fallback := content
			if fallback != "" {
				fallback += "\n\n"
			}
			fallback += fmt.Sprintf("[attachment could not be delivered: %s]", att.Filename)
			return c.CreateMessage(ctx, inboxIdentifier, contactSourceID, conversationID, fallback)
		}
		if first == nil {
			first = msg
		}
	}
	return first, nil
}

func (c *PublicClient) postAttachment(ctx context.Context, rawURL, content string, att OutgoingAttachment) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, multipartTimeout)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("content", content); err != nil {
		return nil, fmt.Errorf("write content field: %w", err)
	}
	part, err := w.CreateFormFile("attachments[]", att.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return nil, fmt.Errorf("write attachment data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post attachment: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &msg, nil
}
