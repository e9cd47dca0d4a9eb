package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bridgelabs/wawoot/internal/chatwoot"
	"github.com/bridgelabs/wawoot/internal/store"
)

// ErrConfigMissing is returned when a session has no platform binding.
// The HTTP layer turns it into a 400 so misrouted webhooks are visible.
var ErrConfigMissing = errors.New("bridge: session has no platform config")

// ClientFactory builds the platform API clients for a tenant binding.
// Swappable so tests can inject fakes.
type ClientFactory func(cfg store.TenantConfig) (AgentAPI, PublicAPI)

// DefaultClientFactory builds real Chatwoot clients.
func DefaultClientFactory(cfg store.TenantConfig) (AgentAPI, PublicAPI) {
	agent := chatwoot.NewAgentClient(cfg.BaseURL, cfg.AccountID, cfg.AgentToken, cfg.BotToken)
	public := chatwoot.NewPublicClient(cfg.BaseURL)
	return agent, public
}

// RegistryConfig wires a registry.
type RegistryConfig struct {
	Tenants  store.TenantConfigStore
	Mappings store.MappingStore

	Transport Transport
	Media     MediaProcessor

	// Clients defaults to DefaultClientFactory.
	Clients ClientFactory
	// BotSenderName is forwarded to every engine.
	BotSenderName string

	Logger *slog.Logger
}

// Registry owns one engine per configured session. Engines are built
// lazily on first use and torn down when their binding changes or goes
// away, so config edits take effect without a restart.
type Registry struct {
	cfg RegistryConfig
	log *slog.Logger

	mu      sync.Mutex
	engines map[string]*Engine
	ctx     context.Context
}

func NewRegistry(ctx context.Context, cfg RegistryConfig) *Registry {
	if cfg.Clients == nil {
		cfg.Clients = DefaultClientFactory
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		log:     log,
		engines: make(map[string]*Engine),
		ctx:     ctx,
	}
}

// Engine returns the running engine for a session, building it from the
// stored binding on first use.
func (r *Registry) Engine(ctx context.Context, sessionID string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[sessionID]; ok {
		return e, nil
	}

	tenant, err := r.cfg.Tenants.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant config: %w", err)
	}
	if !tenant.Valid() {
		return nil, ErrConfigMissing
	}

	agent, public := r.cfg.Clients(*tenant)
	e := NewEngine(EngineConfig{
		SessionID:     sessionID,
		Tenant:        *tenant,
		Transport:     r.cfg.Transport,
		Agent:         agent,
		Public:        public,
		Media:         r.cfg.Media,
		Mappings:      r.cfg.Mappings,
		BotSenderName: r.cfg.BotSenderName,
		Logger:        r.log,
	})
	e.Start(r.ctx)
	r.engines[sessionID] = e
	r.log.Info("engine started", "session", sessionID)
	return e, nil
}

// HandleWebhook routes a decoded platform event to its session engine and
// waits for the verdict.
func (r *Registry) HandleWebhook(ctx context.Context, sessionID string, ev chatwoot.Event) (WebhookOutcome, error) {
	e, err := r.Engine(ctx, sessionID)
	if err != nil {
		return OutcomeProcessed, err
	}
	return e.HandleWebhook(ctx, ev)
}

// Reinitialize tears down a session's engine so the next event rebuilds it
// from the current binding. Called after config writes and deletes.
func (r *Registry) Reinitialize(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[sessionID]; ok {
		e.Stop()
		delete(r.engines, sessionID)
		r.log.Info("engine stopped for reinitialization", "session", sessionID)
	}
}

// DispatchInbound routes a transport message to its session engine.
// Sessions without a binding drop events with a log line; the transport
// side keeps running so the binding can be added later.
func (r *Registry) DispatchInbound(msg InboundMessage) {
	e, err := r.Engine(r.ctx, msg.SessionID)
	if err != nil {
		r.logDrop(msg.SessionID, err)
		return
	}
	e.HandleInbound(msg)
}

// DispatchStatus routes a delivery receipt to its session engine.
func (r *Registry) DispatchStatus(ev StatusEvent) {
	e, err := r.Engine(r.ctx, ev.SessionID)
	if err != nil {
		r.logDrop(ev.SessionID, err)
		return
	}
	e.HandleStatus(ev)
}

func (r *Registry) logDrop(sessionID string, err error) {
	if errors.Is(err, ErrConfigMissing) {
		r.log.Debug("event dropped, session not configured", "session", sessionID)
		return
	}
	r.log.Error("event dropped", "session", sessionID, "error", err)
}

// Shutdown stops every engine.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.engines {
		e.Stop()
		delete(r.engines, id)
	}
}
