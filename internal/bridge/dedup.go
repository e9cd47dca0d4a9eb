package bridge

import (
	"fmt"
	"sync"
	"time"
)

// dedupWindow is how long a webhook fingerprint suppresses replays. Chatwoot
// retries and double-fires webhooks within seconds; anything later is a
// legitimately new event.
const dedupWindow = 5 * time.Minute

type dedupRecord struct {
	fingerprint string
	seen        time.Time
}

// dedupFilter suppresses replayed webhook events. Expired fingerprints are
// swept lazily in arrival order on every check.
type dedupFilter struct {
	now func() time.Time

	mu    sync.Mutex
	seen  map[string]time.Time
	order []dedupRecord
}

func newDedupFilter() *dedupFilter {
	return &dedupFilter{
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// fingerprint builds the replay key for a message event.
func fingerprint(eventID, conversationID int, sessionID string) string {
	return fmt.Sprintf("%d_%d_%s", eventID, conversationID, sessionID)
}

// check records the fingerprint and reports whether it was already seen
// inside the window.
func (d *dedupFilter) check(fp string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := now.Add(-dedupWindow)
	i := 0
	for ; i < len(d.order); i++ {
		r := d.order[i]
		if r.seen.After(cutoff) {
			break
		}
		if d.seen[r.fingerprint].Equal(r.seen) {
			delete(d.seen, r.fingerprint)
		}
	}
	if i > 0 {
		d.order = append([]dedupRecord(nil), d.order[i:]...)
	}

	if when, ok := d.seen[fp]; ok && when.After(cutoff) {
		return true
	}
	d.seen[fp] = now
	d.order = append(d.order, dedupRecord{fingerprint: fp, seen: now})
	return false
}
