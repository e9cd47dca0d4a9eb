// Package config loads wawoot's JSON5 configuration file and applies
// environment overrides. Secrets such as the Postgres DSN are never
// stored in the file and come exclusively from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// ServerConfig holds the HTTP API listener settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// AdminToken guards the management API when set. Environment-only
	// (WAWOOT_ADMIN_TOKEN); the webhook endpoint is never gated by it.
	AdminToken string `json:"-"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the persistence backend. Driver is either
// "postgres" or "sqlite". The Postgres DSN is environment-only
// (WAWOOT_POSTGRES_DSN) and intentionally has no file field.
type DatabaseConfig struct {
	Driver     string `json:"driver"`
	SQLitePath string `json:"sqlite_path"`

	// PostgresDSN is populated from the environment, never from the file.
	PostgresDSN string `json:"-"`
}

// BridgeConfig tunes message correlation behavior.
type BridgeConfig struct {
	// BotSenderName is the agent display name whose outgoing platform
	// messages are treated as bridge echoes and never relayed back.
	BotSenderName string `json:"bot_sender_name"`
}

// TransportConfig tunes the WhatsApp connection layer.
type TransportConfig struct {
	Debug bool `json:"debug"`
}

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Bridge    BridgeConfig    `json:"bridge"`
	Transport TransportConfig `json:"transport"`
	Logging   LoggingConfig   `json:"logging"`
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: defaultSQLitePath(),
		},
		Bridge: BridgeConfig{
			BotSenderName: "syncAgent",
		},
		Transport: TransportConfig{
			Debug: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wawoot.db"
	}
	return filepath.Join(home, ".wawoot", "wawoot.db")
}

// Load reads the config file at path, overlaying it on the defaults.
// A missing file is not an error; env overrides always apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("WAWOOT_HOST", &c.Server.Host)
	// Secret, environment only.
	envStr("WAWOOT_ADMIN_TOKEN", &c.Server.AdminToken)
	if v := os.Getenv("WAWOOT_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	envStr("WAWOOT_DB_DRIVER", &c.Database.Driver)
	envStr("WAWOOT_SQLITE_PATH", &c.Database.SQLitePath)
	// Secret, environment only.
	envStr("WAWOOT_POSTGRES_DSN", &c.Database.PostgresDSN)

	envStr("WAWOOT_BOT_SENDER_NAME", &c.Bridge.BotSenderName)

	if v := os.Getenv("WAWOOT_TRANSPORT_DEBUG"); v == "1" || v == "true" {
		c.Transport.Debug = true
	}

	envStr("WAWOOT_LOG_LEVEL", &c.Logging.Level)
	envStr("WAWOOT_LOG_FORMAT", &c.Logging.Format)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("WAWOOT_POSTGRES_DSN must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wawoot.json"
	}
	return filepath.Join(home, ".wawoot", "config.json")
}
