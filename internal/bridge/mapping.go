package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

// mappingTTL is how long a correlation stays resolvable. Receipts and reply
// references for older messages are dropped.
const mappingTTL = 24 * time.Hour

// mappingEntry correlates one transport message with its platform message.
type mappingEntry struct {
	transportID    string
	platformID     int
	conversationID int
	chatJID        string
	senderJID      string
	status         int
	origin         string
	// created is the message timestamp; device messages can carry one well
	// in the past, so expiry runs on inserted instead.
	created  time.Time
	inserted time.Time
	// unreadTracked marks contact messages awaiting an agent read so the
	// device-side chat can be acknowledged later.
	unreadTracked bool
}

// mappingTable is the in-memory correlation index for one session. Expired
// entries are swept lazily in insertion order on every mutation; there are
// no per-entry timers.
//
// All methods are safe for concurrent use, though in practice the engine
// worker is the only caller.
type mappingTable struct {
	sessionID string
	now       func() time.Time

	mu          sync.Mutex
	byTransport map[string]*mappingEntry
	byPlatform  map[int]*mappingEntry
	order       []*mappingEntry

	// mirror is the optional durable copy; nil in tests.
	mirror store.MappingStore
	log    *slog.Logger
}

func newMappingTable(sessionID string, mirror store.MappingStore, log *slog.Logger) *mappingTable {
	return &mappingTable{
		sessionID:   sessionID,
		now:         time.Now,
		byTransport: make(map[string]*mappingEntry),
		byPlatform:  make(map[int]*mappingEntry),
		mirror:      mirror,
		log:         log,
	}
}

// restore loads surviving correlations from the durable mirror, typically at
// engine construction after a restart.
func (t *mappingTable) restore(ctx context.Context) {
	if t.mirror == nil {
		return
	}
	rows, err := t.mirror.ListSession(ctx, t.sessionID)
	if err != nil {
		t.log.Warn("mapping restore failed", "error", err)
		return
	}
	cutoff := t.now().Add(-mappingTTL)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range rows {
		if m.Created.Before(cutoff) {
			continue
		}
		e := &mappingEntry{
			transportID:    m.TransportMessageID,
			platformID:     m.PlatformMessageID,
			conversationID: m.ConversationID,
			status:         m.Status,
			origin:         m.Origin,
			created:        m.Created,
			inserted:       m.Created,
		}
		t.byTransport[e.transportID] = e
		t.byPlatform[e.platformID] = e
		t.order = append(t.order, e)
	}
}

// sweep drops expired entries from the front of the insertion order.
// Caller holds t.mu.
func (t *mappingTable) sweep() {
	cutoff := t.now().Add(-mappingTTL)
	i := 0
	for ; i < len(t.order); i++ {
		e := t.order[i]
		if e.inserted.After(cutoff) {
			break
		}
		if t.byTransport[e.transportID] == e {
			delete(t.byTransport, e.transportID)
		}
		if t.byPlatform[e.platformID] == e {
			delete(t.byPlatform, e.platformID)
		}
	}
	if i > 0 {
		t.order = append([]*mappingEntry(nil), t.order[i:]...)
	}
}

func (t *mappingTable) put(ctx context.Context, e *mappingEntry) {
	e.inserted = t.now()
	if e.created.IsZero() {
		e.created = e.inserted
	}
	t.mu.Lock()
	t.sweep()
	t.byTransport[e.transportID] = e
	t.byPlatform[e.platformID] = e
	t.order = append(t.order, e)
	t.mu.Unlock()

	if t.mirror != nil {
		err := t.mirror.Upsert(ctx, store.MessageMapping{
			SessionID:          t.sessionID,
			TransportMessageID: e.transportID,
			PlatformMessageID:  e.platformID,
			ConversationID:     e.conversationID,
			Status:             e.status,
			Origin:             e.origin,
			Created:            e.inserted,
		})
		if err != nil {
			t.log.Warn("mapping mirror write failed", "error", err)
		}
	}
}

func (t *mappingTable) byTransportID(id string) (*mappingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	e, ok := t.byTransport[id]
	return e, ok
}

func (t *mappingTable) byPlatformID(id int) (*mappingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	e, ok := t.byPlatform[id]
	return e, ok
}

// advanceStatus applies a status transition if it moves strictly upward.
// Returns the matched entry and whether the transition was applied.
func (t *mappingTable) advanceStatus(ctx context.Context, transportID string, status int) (*mappingEntry, bool) {
	t.mu.Lock()
	t.sweep()
	e, ok := t.byTransport[transportID]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	if status <= e.status {
		t.mu.Unlock()
		return e, false
	}
	e.status = status
	t.mu.Unlock()

	if t.mirror != nil {
		if err := t.mirror.SetStatus(ctx, t.sessionID, transportID, status); err != nil {
			t.log.Warn("mapping mirror status write failed", "error", err)
		}
	}
	return e, true
}

// takeUnread returns and clears the unread-tracked entries for a
// conversation, oldest first.
func (t *mappingTable) takeUnread(conversationID int) []*mappingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweep()
	var out []*mappingEntry
	for _, e := range t.order {
		if e.unreadTracked && e.conversationID == conversationID {
			e.unreadTracked = false
			out = append(out, e)
		}
	}
	return out
}
