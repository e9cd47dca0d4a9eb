package store

import (
	"context"
	"time"
)

// TenantConfig is the per-session Chatwoot binding. A session without one is
// not bridged: inbound events are dropped and webhooks are rejected.
type TenantConfig struct {
	SessionID       string    `json:"sessionId"`
	BaseURL         string    `json:"baseUrl"`
	AccountID       string    `json:"accountId"`
	InboxIdentifier string    `json:"inboxIdentifier"`
	AgentToken      string    `json:"agentToken"`
	BotToken        string    `json:"botToken"`
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
}

// Valid reports whether the config carries everything both API surfaces need.
func (c TenantConfig) Valid() bool {
	return c.SessionID != "" && c.BaseURL != "" && c.AccountID != "" &&
		c.InboxIdentifier != "" && c.AgentToken != "" && c.BotToken != ""
}

// TenantConfigStore manages per-session Chatwoot bindings.
type TenantConfigStore interface {
	Get(ctx context.Context, sessionID string) (*TenantConfig, error)
	Put(ctx context.Context, cfg TenantConfig) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]TenantConfig, error)
}
