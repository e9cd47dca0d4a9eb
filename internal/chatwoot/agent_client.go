// Package chatwoot implements HTTP clients for the two credential scopes of
// a Chatwoot-compatible ticketing platform: the account ("app") API used with
// agent/bot access tokens, and the unauthenticated public inbox API.
package chatwoot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

const (
	jsonTimeout      = 10 * time.Second
	multipartTimeout = 30 * time.Second
)

// AgentClient talks to the account-scoped API. Read/search/status calls use
// the agent token; message creation uses the bot token so agent replies
// relayed from the transport are attributed to the bridge's bot agent.
type AgentClient struct {
	baseURL    string
	accountID  string
	agentToken string
	botToken   string
	httpClient *http.Client
}

// NewAgentClient builds an account-API client. baseURL is the platform root
// without trailing slash, e.g. "https://chat.example.com".
func NewAgentClient(baseURL, accountID, agentToken, botToken string) *AgentClient {
	return &AgentClient{
		baseURL:    baseURL,
		accountID:  accountID,
		agentToken: agentToken,
		botToken:   botToken,
		httpClient: &http.Client{Timeout: multipartTimeout},
	}
}

func (c *AgentClient) accountPath(format string, args ...any) string {
	return fmt.Sprintf("%s/api/v1/accounts/%s", c.baseURL, c.accountID) + fmt.Sprintf(format, args...)
}

// doJSON executes a JSON request with the given access token and decodes a
// 2xx response body into out (when out is non-nil).
func (c *AgentClient) doJSON(ctx context.Context, method, rawURL, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, jsonTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
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

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var errBody struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errBody) == nil && errBody.Message != "" {
		return fmt.Errorf("chatwoot: HTTP %d: %s", resp.StatusCode, errBody.Message)
	}
	return fmt.Errorf("chatwoot: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// SearchContacts searches account contacts by phone number fragment.
func (c *AgentClient) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	u := c.accountPath("/contacts/search") + "?sort=phone_number&q=" + url.QueryEscape(query)
	var env contactListEnvelope
	if err := c.doJSON(ctx, http.MethodGet, u, c.agentToken, nil, &env); err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return env.Payload, nil
}

// ShowContact fetches one contact by id.
func (c *AgentClient) ShowContact(ctx context.Context, contactID int) (*Contact, error) {
	var env contactShowEnvelope
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("/contacts/%d", contactID), c.agentToken, nil, &env); err != nil {
		return nil, fmt.Errorf("show contact %d: %w", contactID, err)
	}
	return &env.Payload, nil
}

// ContactConversations lists a contact's conversations, platform-ordered.
func (c *AgentClient) ContactConversations(ctx context.Context, contactID int) ([]Conversation, error) {
	var env conversationListEnvelope
	if err := c.doJSON(ctx, http.MethodGet, c.accountPath("/contacts/%d/conversations", contactID), c.agentToken, nil, &env); err != nil {
		return nil, fmt.Errorf("list conversations for contact %d: %w", contactID, err)
	}
	return env.Payload, nil
}

// CreateMessage posts a message into a conversation using the bot token.
// direction is "incoming" or "outgoing"; sourceID carries the transport
// message id for later correlation and may be empty.
func (c *AgentClient) CreateMessage(ctx context.Context, conversationID int, content, direction, sourceID string) (*Message, error) {
	body := map[string]any{
		"content":      content,
		"message_type": direction,
		"source_id":    sourceID,
	}
	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, c.accountPath("/conversations/%d/messages", conversationID), c.botToken, body, &msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &msg, nil
}

// CreateReply posts a threaded reply referencing an earlier platform message.
func (c *AgentClient) CreateReply(ctx context.Context, conversationID int, content, direction, sourceID string, replyToMessageID int) (*Message, error) {
	body := map[string]any{
		"content":      content,
		"message_type": direction,
		"source_id":    sourceID,
		"content_attributes": map[string]any{
			"in_reply_to": replyToMessageID,
		},
	}
	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, c.accountPath("/conversations/%d/messages", conversationID), c.botToken, body, &msg); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	return &msg, nil
}

// CreateMessageWithAttachments posts a multipart message with one or more
// attachments using the bot token.
func (c *AgentClient) CreateMessageWithAttachments(ctx context.Context, conversationID int, content, direction, sourceID string, attachments []OutgoingAttachment) (*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, multipartTimeout)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if content != "" {
		if err := w.WriteField("content", content); err != nil {
			return nil, fmt.Errorf("write content field: %w", err)
		}
	}
	if err := w.WriteField("message_type", direction); err != nil {
		return nil, fmt.Errorf("write message_type field: %w", err)
	}
	if sourceID != "" {
		if err := w.WriteField("source_id", sourceID); err != nil {
			return nil, fmt.Errorf("write source_id field: %w", err)
		}
	}
	for _, att := range attachments {
		part, err := w.CreateFormFile("attachments[]", att.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return nil, fmt.Errorf("write attachment data: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountPath("/conversations/%d/messages", conversationID), &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("api_access_token", c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create message with attachments: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("create message with attachments: %w", err)
	}
	var msg Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &msg, nil
}

// UpdateMessageStatus patches a message's delivery status using the agent
// token. status is a platform status string ("delivered", "read").
func (c *AgentClient) UpdateMessageStatus(ctx context.Context, conversationID, messageID int, status string) error {
	body := map[string]any{"status": status}
	if err := c.doJSON(ctx, http.MethodPatch, c.accountPath("/conversations/%d/messages/%d", conversationID, messageID), c.agentToken, body, nil); err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	return nil
}
