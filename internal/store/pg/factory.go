// Package pg implements the storage interfaces on Postgres via the pgx
// stdlib driver.
package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bridgelabs/wawoot/internal/store"
)

// OpenDB opens a pooled Postgres connection.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPGStores creates all stores backed by Postgres.
func NewPGStores(cfg store.StoreConfig) (*store.Stores, *sql.DB, error) {
	db, err := OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return &store.Stores{
		Tenants:  NewPGTenantStore(db),
		Sessions: NewPGSessionStore(db),
		Mappings: NewPGMappingStore(db),
	}, db, nil
}
