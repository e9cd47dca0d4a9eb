package store

import "errors"

// ErrNotFound is returned by lookups that match nothing. Callers that treat
// absence as a normal state check for it with errors.Is.
var ErrNotFound = errors.New("store: not found")

// StoreConfig selects and parameterizes the storage backend.
type StoreConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	// PostgresDSN comes from the environment only, never from config files.
	PostgresDSN string
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Tenants  TenantConfigStore
	Sessions SessionStore
	Mappings MappingStore
}
