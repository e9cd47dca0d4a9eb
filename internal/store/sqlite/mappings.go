package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// SQLiteMappingStore implements store.MappingStore on SQLite.
type SQLiteMappingStore struct {
	db *sql.DB
}

func NewSQLiteMappingStore(db *sql.DB) *SQLiteMappingStore {
	return &SQLiteMappingStore{db: db}
}

func (s *SQLiteMappingStore) Upsert(ctx context.Context, m store.MessageMapping) error {
	if m.Created.IsZero() {
		m.Created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_mappings (session_id, transport_message_id, platform_message_id, conversation_id, status, origin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id, transport_message_id) DO UPDATE SET
		   platform_message_id = excluded.platform_message_id,
		   conversation_id = excluded.conversation_id,
		   status = excluded.status,
		   origin = excluded.origin`,
		m.SessionID, m.TransportMessageID, m.PlatformMessageID, m.ConversationID,
		m.Status, m.Origin, m.Created)
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

func (s *SQLiteMappingStore) GetByTransportID(ctx context.Context, sessionID, transportMessageID string) (*store.MessageMapping, error) {
	return s.getOne(ctx,
		`SELECT session_id, transport_message_id, platform_message_id, conversation_id, status, origin, created_at
		 FROM message_mappings WHERE session_id = ? AND transport_message_id = ?`,
		sessionID, transportMessageID)
}

func (s *SQLiteMappingStore) GetByPlatformID(ctx context.Context, sessionID string, platformMessageID int) (*store.MessageMapping, error) {
	return s.getOne(ctx,
		`SELECT session_id, transport_message_id, platform_message_id, conversation_id, status, origin, created_at
		 FROM message_mappings WHERE session_id = ? AND platform_message_id = ?`,
		sessionID, platformMessageID)
}

func (s *SQLiteMappingStore) getOne(ctx context.Context, query string, args ...any) (*store.MessageMapping, error) {
	var m store.MessageMapping
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&m.SessionID, &m.TransportMessageID, &m.PlatformMessageID,
		&m.ConversationID, &m.Status, &m.Origin, &m.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &m, nil
}

func (s *SQLiteMappingStore) SetStatus(ctx context.Context, sessionID, transportMessageID string, status int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE message_mappings SET status = ?
		 WHERE session_id = ? AND transport_message_id = ?`,
		status, sessionID, transportMessageID)
	if err != nil {
		return fmt.Errorf("set mapping status: %w", err)
	}
	return nil
}

func (s *SQLiteMappingStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM message_mappings WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired mappings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteMappingStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM message_mappings WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session mappings: %w", err)
	}
	return nil
}

func (s *SQLiteMappingStore) ListSession(ctx context.Context, sessionID string) ([]store.MessageMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, transport_message_id, platform_message_id, conversation_id, status, origin, created_at
		 FROM message_mappings WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session mappings: %w", err)
	}
	defer rows.Close()

	var out []store.MessageMapping
	for rows.Next() {
		var m store.MessageMapping
		if err := rows.Scan(&m.SessionID, &m.TransportMessageID, &m.PlatformMessageID,
			&m.ConversationID, &m.Status, &m.Origin, &m.Created); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
