package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// PGSessionStore implements store.SessionStore backed by Postgres.
type PGSessionStore struct {
	db *sql.DB
}

func NewPGSessionStore(db *sql.DB) *PGSessionStore {
	return &PGSessionStore{db: db}
}

func (s *PGSessionStore) Get(ctx context.Context, sessionID string) (*store.TransportSession, error) {
	var sess store.TransportSession
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, phone_number, display_name, device_jid, connected, created_at, updated_at
		 FROM transport_sessions WHERE session_id = $1`, sessionID,
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

func (s *PGSessionStore) Put(ctx context.Context, sess store.TransportSession) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transport_sessions (session_id, phone_number, display_name, device_jid, connected, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (session_id) DO UPDATE SET
		   phone_number = EXCLUDED.phone_number,
		   display_name = EXCLUDED.display_name,
		   device_jid = EXCLUDED.device_jid,
		   connected = EXCLUDED.connected,
		   updated_at = EXCLUDED.updated_at`,
		sess.SessionID, sess.PhoneNumber, sess.DisplayName, sess.DeviceJID, sess.Connected, now)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *PGSessionStore) SetDevice(ctx context.Context, sessionID, deviceJID, phoneNumber, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transport_sessions
		 SET device_jid = $2, phone_number = $3, display_name = $4, updated_at = $5
		 WHERE session_id = $1`,
		sessionID, deviceJID, phoneNumber, displayName, time.Now())
	if err != nil {
		return fmt.Errorf("set session device: %w", err)
	}
	return nil
}

func (s *PGSessionStore) SetConnected(ctx context.Context, sessionID string, connected bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE transport_sessions SET connected = $2, updated_at = $3 WHERE session_id = $1`,
		sessionID, connected, time.Now())
	if err != nil {
		return fmt.Errorf("set session connected: %w", err)
	}
	return nil
}

func (s *PGSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transport_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PGSessionStore) List(ctx context.Context) ([]store.TransportSession, error) {
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
