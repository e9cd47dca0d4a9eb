package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateTable keeps one token bucket per session so a noisy tenant cannot
// starve the others. rpm <= 0 disables limiting.
type rateTable struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newRateTable(rpm int) *rateTable {
	if rpm <= 0 {
		return &rateTable{}
	}
	return &rateTable{
		limit:   rate.Limit(float64(rpm) / 60),
		burst:   rpm/6 + 1,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (t *rateTable) allow(key string) bool {
	if t.buckets == nil {
		return true
	}
	t.mu.Lock()
	lim, ok := t.buckets[key]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.buckets[key] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}
