package bridge

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

func newTestTable() (*mappingTable, *time.Time) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t := newMappingTable("s1", nil, slog.Default())
	t.now = func() time.Time { return now }
	return t, &now
}

func TestMappingExpiresAfterTTL(t *testing.T) {
	table, now := newTestTable()
	ctx := context.Background()

	table.put(ctx, &mappingEntry{transportID: "WA1", platformID: 100, conversationID: 1})
	*now = now.Add(23 * time.Hour)
	table.put(ctx, &mappingEntry{transportID: "WA2", platformID: 101, conversationID: 1})

	if _, ok := table.byTransportID("WA1"); !ok {
		t.Fatal("entry expired too early")
	}

	*now = now.Add(2 * time.Hour)
	if _, ok := table.byTransportID("WA1"); ok {
		t.Error("entry should have expired")
	}
	if _, ok := table.byTransportID("WA2"); !ok {
		t.Error("younger entry swept with the old one")
	}
	if _, ok := table.byPlatformID(100); ok {
		t.Error("platform index kept an expired entry")
	}
}

func TestMappingExpiryRunsOnInsertionTime(t *testing.T) {
	table, now := newTestTable()
	ctx := context.Background()

	// Device messages can carry a timestamp well in the past; the
	// correlation still lives a full TTL from when it was recorded.
	table.put(ctx, &mappingEntry{transportID: "WA1", platformID: 100, created: now.Add(-48 * time.Hour)})
	*now = now.Add(1 * time.Hour)
	table.put(ctx, &mappingEntry{transportID: "WA2", platformID: 101})

	if _, ok := table.byTransportID("WA1"); !ok {
		t.Error("old-timestamp entry expired before its TTL")
	}

	*now = now.Add(25 * time.Hour)
	if _, ok := table.byTransportID("WA1"); ok {
		t.Error("entry outlived its TTL")
	}
	if _, ok := table.byTransportID("WA2"); ok {
		t.Error("entry outlived its TTL")
	}
}

func TestAdvanceStatusMonotonic(t *testing.T) {
	table, _ := newTestTable()
	ctx := context.Background()
	table.put(ctx, &mappingEntry{transportID: "WA1", platformID: 100, status: StatusPending})

	steps := []struct {
		status      int
		wantApplied bool
		wantStatus  int
	}{
		{StatusDelivered, true, StatusDelivered},
		{StatusSent, false, StatusDelivered},
		{StatusRead, true, StatusRead},
		{StatusPending, false, StatusRead},
		{StatusRead, false, StatusRead},
	}
	for _, step := range steps {
		entry, applied := table.advanceStatus(ctx, "WA1", step.status)
		if applied != step.wantApplied {
			t.Errorf("advance(%d): applied = %v, want %v", step.status, applied, step.wantApplied)
		}
		if entry.status != step.wantStatus {
			t.Errorf("advance(%d): status = %d, want %d", step.status, entry.status, step.wantStatus)
		}
	}
}

func TestAdvanceStatusUnknownMessage(t *testing.T) {
	table, _ := newTestTable()
	entry, applied := table.advanceStatus(context.Background(), "nope", StatusRead)
	if entry != nil || applied {
		t.Errorf("got entry %v applied %v for unknown id", entry, applied)
	}
}

func TestTakeUnreadClearsTracking(t *testing.T) {
	table, _ := newTestTable()
	ctx := context.Background()
	table.put(ctx, &mappingEntry{transportID: "WA1", platformID: 100, conversationID: 1, unreadTracked: true})
	table.put(ctx, &mappingEntry{transportID: "WA2", platformID: 101, conversationID: 2, unreadTracked: true})
	table.put(ctx, &mappingEntry{transportID: "WA3", platformID: 102, conversationID: 1, unreadTracked: true})

	got := table.takeUnread(1)
	if len(got) != 2 || got[0].transportID != "WA1" || got[1].transportID != "WA3" {
		t.Fatalf("takeUnread = %+v", got)
	}
	if again := table.takeUnread(1); len(again) != 0 {
		t.Errorf("second take returned %d entries, want 0", len(again))
	}
	if other := table.takeUnread(2); len(other) != 1 {
		t.Errorf("other conversation lost its tracking")
	}
}

func TestMappingRestoreSkipsExpired(t *testing.T) {
	mirror := &fakeMirror{rows: []store.MessageMapping{
		{SessionID: "s1", TransportMessageID: "OLD", PlatformMessageID: 1, Created: time.Now().Add(-25 * time.Hour)},
		{SessionID: "s1", TransportMessageID: "NEW", PlatformMessageID: 2, Created: time.Now().Add(-1 * time.Hour)},
	}}
	table := newMappingTable("s1", mirror, slog.Default())
	table.restore(context.Background())

	if _, ok := table.byTransportID("OLD"); ok {
		t.Error("expired row restored")
	}
	if _, ok := table.byTransportID("NEW"); !ok {
		t.Error("fresh row not restored")
	}
}

// fakeMirror is a minimal store.MappingStore for restore tests.
type fakeMirror struct {
	rows []store.MessageMapping
}

func (f *fakeMirror) Upsert(ctx context.Context, m store.MessageMapping) error { return nil }
func (f *fakeMirror) GetByTransportID(ctx context.Context, sessionID, id string) (*store.MessageMapping, error) {
	return nil, store.ErrNotFound
}
func (f *fakeMirror) GetByPlatformID(ctx context.Context, sessionID string, id int) (*store.MessageMapping, error) {
	return nil, store.ErrNotFound
}
func (f *fakeMirror) SetStatus(ctx context.Context, sessionID, id string, status int) error {
	return nil
}
func (f *fakeMirror) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeMirror) DeleteSession(ctx context.Context, sessionID string) error { return nil }
func (f *fakeMirror) ListSession(ctx context.Context, sessionID string) ([]store.MessageMapping, error) {
	return f.rows, nil
}
