package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bridgelabs/wawoot/internal/bridge"
	"github.com/bridgelabs/wawoot/internal/config"
	"github.com/bridgelabs/wawoot/internal/httpapi"
	"github.com/bridgelabs/wawoot/internal/media"
	"github.com/bridgelabs/wawoot/internal/store"
	"github.com/bridgelabs/wawoot/internal/store/pg"
	"github.com/bridgelabs/wawoot/internal/store/sqlite"
	"github.com/bridgelabs/wawoot/internal/transport"
)

// webhookRPM caps Chatwoot webhook deliveries per session per minute.
const webhookRPM = 600

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	stores, db, dialect, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := httpapi.NewEventHub(slog.Default())

	mgr, err := transport.NewManager(ctx, transport.ManagerConfig{
		DB:       db,
		Dialect:  dialect,
		Sessions: stores.Sessions,
		Events:   hub,
		Debug:    cfg.Transport.Debug,
		Logger:   slog.Default(),
	})
	if err != nil {
		slog.Error("failed to start transport", "error", err)
		os.Exit(1)
	}

	registry := bridge.NewRegistry(ctx, bridge.RegistryConfig{
		Tenants:       stores.Tenants,
		Mappings:      stores.Mappings,
		Transport:     mgr,
		Media:         &media.Transcoder{},
		BotSenderName: cfg.Bridge.BotSenderName,
		Logger:        slog.Default(),
	})
	mgr.SetDispatcher(registry)

	if err := mgr.StartAll(ctx); err != nil {
		slog.Error("session reconnect failed", "error", err)
	}

	srv := httpapi.NewServer(cfg.Server.Addr(), slog.Default(),
		httpapi.NewWebhookHandler(registry, webhookRPM, slog.Default()),
		httpapi.NewSessionsHandler(mgr, cfg.Server.AdminToken, slog.Default()),
		httpapi.NewTenantsHandler(stores.Tenants, registry, cfg.Server.AdminToken, slog.Default()),
		hub,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
		}
	}

	cancel()
	registry.Shutdown()
	mgr.Stop()
}

func setupLogging(lc config.LoggingConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(lc.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openStores returns the store set, the shared DB handle, and the whatsmeow
// sqlstore dialect for that handle.
func openStores(cfg *config.Config) (*store.Stores, *sql.DB, string, error) {
	sc := store.StoreConfig{
		Driver:      cfg.Database.Driver,
		PostgresDSN: cfg.Database.PostgresDSN,
		SQLitePath:  cfg.Database.SQLitePath,
	}
	switch cfg.Database.Driver {
	case "postgres":
		stores, db, err := pg.NewPGStores(sc)
		return stores, db, "postgres", err
	case "sqlite":
		stores, db, err := sqlite.NewSQLiteStores(sc)
		return stores, db, "sqlite3", err
	default:
		return nil, nil, "", fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
