package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bridgelabs/wawoot/internal/store"
)

// defaultBotSenderName is the platform agent identity used for relayed
// messages; webhook events from this sender are echoes and never relayed
// back out.
const defaultBotSenderName = "syncAgent"

// taskQueueSize bounds the per-session backlog. Transport events past the
// bound are dropped with a log line rather than blocking the socket reader.
const taskQueueSize = 256

// ErrEngineStopped is returned by synchronous submissions after Stop.
var ErrEngineStopped = errors.New("bridge: engine stopped")

type task struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// EngineConfig carries everything an engine needs for one session.
type EngineConfig struct {
	SessionID string
	Tenant    store.TenantConfig

	Transport Transport
	Agent     AgentAPI
	Public    PublicAPI
	Media     MediaProcessor

	// Mappings is the durable mirror; nil disables persistence.
	Mappings store.MappingStore

	// BotSenderName overrides the relay agent identity filter.
	BotSenderName string

	Logger *slog.Logger
}

// Engine correlates one WhatsApp session with one Chatwoot inbox. A single
// worker goroutine consumes the task queue, so every handler runs serialized
// in arrival order and engine state needs no further locking.
type Engine struct {
	sessionID     string
	tenant        store.TenantConfig
	transport     Transport
	agent         AgentAPI
	public        PublicAPI
	media         MediaProcessor
	botSenderName string
	log           *slog.Logger

	mappings *mappingTable
	dedup    *dedupFilter
	resolver *resolver

	// convPhone remembers which counterpart each conversation belongs to,
	// for webhook payloads that omit the contact number.
	convPhone map[int]string
	// convChat remembers the device-side chat address per conversation.
	convChat map[int]string

	tasks    chan task
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewEngine builds an engine and restores surviving correlations from the
// durable mirror. Call Start to begin processing.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", cfg.SessionID)

	botName := cfg.BotSenderName
	if botName == "" {
		botName = defaultBotSenderName
	}

	e := &Engine{
		sessionID:     cfg.SessionID,
		tenant:        cfg.Tenant,
		transport:     cfg.Transport,
		agent:         cfg.Agent,
		public:        cfg.Public,
		media:         cfg.Media,
		botSenderName: botName,
		log:           log,
		mappings:      newMappingTable(cfg.SessionID, cfg.Mappings, log),
		dedup:         newDedupFilter(),
		convPhone:     make(map[int]string),
		convChat:      make(map[int]string),
		tasks:         make(chan task, taskQueueSize),
		stopped:       make(chan struct{}),
	}
	e.resolver = newResolver(cfg.Agent, cfg.Public, cfg.Tenant.InboxIdentifier, log)
	e.mappings.restore(context.Background())
	return e
}

// Start runs the worker until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return
		case <-e.stopped:
			return
		case t := <-e.tasks:
			t.fn(ctx)
			if t.done != nil {
				close(t.done)
			}
		}
	}
}

// Stop ends processing. Queued tasks are abandoned; synchronous callers
// waiting on them get ErrEngineStopped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopped) })
}

// submit enqueues fire-and-forget work. Transport events use this path so a
// platform outage cannot block the socket reader.
func (e *Engine) submit(fn func(ctx context.Context)) {
	select {
	case e.tasks <- task{fn: fn}:
	case <-e.stopped:
	default:
		e.log.Warn("task queue full, event dropped")
	}
}

// submitAndWait enqueues work and blocks until the worker has run it.
// Webhook handling uses this path so the HTTP response reflects the verdict.
func (e *Engine) submitAndWait(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	select {
	case e.tasks <- task{fn: fn, done: done}:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleInbound enqueues a transport message event.
func (e *Engine) HandleInbound(msg InboundMessage) {
	e.submit(func(ctx context.Context) { e.processInbound(ctx, msg) })
}

// HandleStatus enqueues a transport delivery receipt.
func (e *Engine) HandleStatus(ev StatusEvent) {
	e.submit(func(ctx context.Context) { e.processStatus(ctx, ev) })
}
