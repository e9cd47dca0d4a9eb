package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bridgelabs/wawoot/internal/store"
)

func openTestStores(t *testing.T) *store.Stores {
	t.Helper()
	stores, db, err := NewSQLiteStores(store.StoreConfig{
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return stores
}

func TestTenantConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	if _, err := stores.Tenants.Get(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cfg := store.TenantConfig{
		SessionID: "s1", BaseURL: "https://cw.example.com", AccountID: "7",
		InboxIdentifier: "inbox-abc", AgentToken: "at", BotToken: "bt",
	}
	if err := stores.Tenants.Put(ctx, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := stores.Tenants.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.BaseURL != cfg.BaseURL || got.BotToken != "bt" {
		t.Errorf("got %+v", got)
	}
	if !got.Valid() {
		t.Error("stored config should be valid")
	}

	// Upsert replaces fields in place.
	cfg.AgentToken = "rotated"
	if err := stores.Tenants.Put(ctx, cfg); err != nil {
		t.Fatalf("re-put: %v", err)
	}
	got, _ = stores.Tenants.Get(ctx, "s1")
	if got.AgentToken != "rotated" {
		t.Errorf("agent token = %q, want rotated", got.AgentToken)
	}

	if err := stores.Tenants.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := stores.Tenants.Get(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSessionConnectedLifecycle(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	if err := stores.Sessions.Put(ctx, store.TransportSession{SessionID: "s1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := stores.Sessions.SetDevice(ctx, "s1", "5511999990000:12@s.whatsapp.net", "5511999990000", "Bob"); err != nil {
		t.Fatalf("set device: %v", err)
	}
	if err := stores.Sessions.SetConnected(ctx, "s1", true); err != nil {
		t.Fatalf("set connected: %v", err)
	}

	sess, err := stores.Sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !sess.Connected || sess.PhoneNumber != "5511999990000" || sess.DisplayName != "Bob" {
		t.Errorf("session = %+v", sess)
	}

	all, err := stores.Sessions.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len = %d, want 1", len(all))
	}
}

func TestMappingUpsertAndExpiry(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	old := store.MessageMapping{
		SessionID: "s1", TransportMessageID: "WAID1", PlatformMessageID: 100,
		ConversationID: 42, Status: 2, Origin: store.OriginBridge,
		Created: time.Now().Add(-25 * time.Hour),
	}
	fresh := store.MessageMapping{
		SessionID: "s1", TransportMessageID: "WAID2", PlatformMessageID: 101,
		ConversationID: 42, Status: 1, Origin: store.OriginDevice,
	}
	for _, m := range []store.MessageMapping{old, fresh} {
		if err := stores.Mappings.Upsert(ctx, m); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	byPlatform, err := stores.Mappings.GetByPlatformID(ctx, "s1", 101)
	if err != nil {
		t.Fatalf("get by platform id: %v", err)
	}
	if byPlatform.TransportMessageID != "WAID2" {
		t.Errorf("transport id = %q", byPlatform.TransportMessageID)
	}

	if err := stores.Mappings.SetStatus(ctx, "s1", "WAID2", 3); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := stores.Mappings.GetByTransportID(ctx, "s1", "WAID2")
	if got.Status != 3 {
		t.Errorf("status = %d, want 3", got.Status)
	}

	n, err := stores.Mappings.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, err := stores.Mappings.GetByTransportID(ctx, "s1", "WAID1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expired mapping should be gone, got %v", err)
	}
}
