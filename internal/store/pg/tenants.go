package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// PGTenantStore implements store.TenantConfigStore backed by Postgres.
type PGTenantStore struct {
	db *sql.DB
}

func NewPGTenantStore(db *sql.DB) *PGTenantStore {
	return &PGTenantStore{db: db}
}

func (s *PGTenantStore) Get(ctx context.Context, sessionID string) (*store.TenantConfig, error) {
	var cfg store.TenantConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, base_url, account_id, inbox_identifier, agent_token, bot_token, created_at, updated_at
		 FROM tenant_configs WHERE session_id = $1`, sessionID,
	).Scan(&cfg.SessionID, &cfg.BaseURL, &cfg.AccountID, &cfg.InboxIdentifier,
		&cfg.AgentToken, &cfg.BotToken, &cfg.Created, &cfg.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant config: %w", err)
	}
	return &cfg, nil
}

func (s *PGTenantStore) Put(ctx context.Context, cfg store.TenantConfig) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_configs (session_id, base_url, account_id, inbox_identifier, agent_token, bot_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (session_id) DO UPDATE SET
		   base_url = EXCLUDED.base_url,
		   account_id = EXCLUDED.account_id,
		   inbox_identifier = EXCLUDED.inbox_identifier,
		   agent_token = EXCLUDED.agent_token,
		   bot_token = EXCLUDED.bot_token,
		   updated_at = EXCLUDED.updated_at`,
		cfg.SessionID, cfg.BaseURL, cfg.AccountID, cfg.InboxIdentifier,
		cfg.AgentToken, cfg.BotToken, now)
	if err != nil {
		return fmt.Errorf("put tenant config: %w", err)
	}
	return nil
}

func (s *PGTenantStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM tenant_configs WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete tenant config: %w", err)
	}
	return nil
}

func (s *PGTenantStore) List(ctx context.Context) ([]store.TenantConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, base_url, account_id, inbox_identifier, agent_token, bot_token, created_at, updated_at
		 FROM tenant_configs ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list tenant configs: %w", err)
	}
	defer rows.Close()

	var out []store.TenantConfig
	for rows.Next() {
		var cfg store.TenantConfig
		if err := rows.Scan(&cfg.SessionID, &cfg.BaseURL, &cfg.AccountID, &cfg.InboxIdentifier,
			&cfg.AgentToken, &cfg.BotToken, &cfg.Created, &cfg.Updated); err != nil {
			return nil, fmt.Errorf("scan tenant config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
