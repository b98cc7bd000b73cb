package utils

import (
	"sync"
	"time"
)

// Deduplicator remembers recently seen request IDs
type Deduplicator struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeduplicator creates a deduplicator that forgets IDs after ttl
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	return &Deduplicator{ttl: ttl, maxSize: 10000, now: time.Now, seen: make(map[string]time.Time)}
}

// IsDuplicate checks if an ID has been seen within the TTL and records it.
// Returns true if the request is a duplicate and should be ignored.
func (d *Deduplicator) IsDuplicate(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if ts, ok := d.seen[id]; ok && now.Sub(ts) < d.ttl {
		return true
	}
	d.seen[id] = now

	// Cleanup old entries if map gets too big
	if len(d.seen) > d.maxSize {
		for k, v := range d.seen {
			if now.Sub(v) >= d.ttl {
				delete(d.seen, k)
			}
		}
	}
	return false
}

// Forget drops id so a failed request can be retried
func (d *Deduplicator) Forget(id string) {
	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}
