package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// SQLiteSessionStore implements store.SessionStore on SQLite.
type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

func (s *SQLiteSessionStore) Get(ctx context.Context, sessionID string) (*store.TransportSession, error) {
	var sess store.TransportSession
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, phone_number, display_name, device_jid, connected, created_at, updated_at
		 FROM transport_sessions WHERE session_id = ?`, sessionID,
	).Scan(&sess.SessionID, &sess.PhoneNumber, &sess.DisplayName, &sess.DeviceJID,
		&sess.Connected, &sess.Created, &sess.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteSessionStore) Put(ctx context.Context, sess store.TransportSession) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transport_sessions (session_id, phone_number, display_name, device_jid, connected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		   phone_number = excluded.phone_number,
		   display_name = excluded.display_name,
		   device_jid = excluded.device_jid,
		   connected = excluded.connected,
		   updated_at = excluded.updated_at`,
		sess.SessionID, sess.PhoneNumber, sess.DisplayName, sess.DeviceJID, sess.Connected, now, now)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) SetDevice(ctx context.Context, sessionID, deviceJID, phoneNumber, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transport_sessions
		 SET device_jid = ?, phone_number = ?, display_name = ?, updated_at = ?
		 WHERE session_id = ?`,
		deviceJID, phoneNumber, displayName, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("set session device: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) SetConnected(ctx context.Context, sessionID string, connected bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transport_sessions SET connected = ?, updated_at = ? WHERE session_id = ?`,
		connected, time.Now(), sessionID)
	if err != nil {
		return fmt.Errorf("set session connected: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transport_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]store.TransportSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, phone_number, display_name, device_jid, connected, created_at, updated_at
		 FROM transport_sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []store.TransportSession
	for rows.Next() {
		var sess store.TransportSession
		if err := rows.Scan(&sess.SessionID, &sess.PhoneNumber, &sess.DisplayName, &sess.DeviceJID,
			&sess.Connected, &sess.Created, &sess.Updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
