package bridge

import (
	"testing"
	"time"
)

func TestDedupWithinWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	d := newDedupFilter()
	d.now = func() time.Time { return now }

	fp := fingerprint(901, 42, "s1")
	if d.check(fp) {
		t.Fatal("first sighting flagged as duplicate")
	}
	now = now.Add(time.Minute)
	if !d.check(fp) {
		t.Error("replay inside the window not flagged")
	}
	if d.check(fingerprint(902, 42, "s1")) {
		t.Error("different event id flagged")
	}
	if d.check(fingerprint(901, 42, "s2")) {
		t.Error("different session flagged")
	}
}

func TestDedupExpiresAfterWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	d := newDedupFilter()
	d.now = func() time.Time { return now }

	fp := fingerprint(901, 42, "s1")
	d.check(fp)
	now = now.Add(dedupWindow + time.Second)
	if d.check(fp) {
		t.Error("fingerprint past the window still flagged")
	}
	if len(d.seen) != 1 {
		t.Errorf("expired fingerprints not swept, map has %d entries", len(d.seen))
	}
}
