// Package sqlite implements the storage interfaces on a local SQLite file
// for standalone deployments that run without Postgres.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/bridgelabs/wawoot/internal/store"
)

// OpenDB opens the SQLite database and applies the schema. SQLite allows a
// single writer, so the pool is capped at one connection.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenant_configs (
			session_id TEXT PRIMARY KEY,
			base_url TEXT NOT NULL,
			account_id TEXT NOT NULL,
			inbox_identifier TEXT NOT NULL,
			agent_token TEXT NOT NULL,
			bot_token TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transport_sessions (
			session_id TEXT PRIMARY KEY,
			phone_number TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			device_jid TEXT NOT NULL DEFAULT '',
			connected INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message_mappings (
			session_id TEXT NOT NULL,
			transport_message_id TEXT NOT NULL,
			platform_message_id INTEGER NOT NULL,
			conversation_id INTEGER NOT NULL,
			status INTEGER NOT NULL,
			origin TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (session_id, transport_message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_platform
			ON message_mappings (session_id, platform_message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_created
			ON message_mappings (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// NewSQLiteStores creates all stores backed by a local SQLite file.
func NewSQLiteStores(cfg store.StoreConfig) (*store.Stores, *sql.DB, error) {
	db, err := OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return &store.Stores{
		Tenants:  NewSQLiteTenantStore(db),
		Sessions: NewSQLiteSessionStore(db),
		Mappings: NewSQLiteMappingStore(db),
	}, db, nil
}
