package analytics

import (
	"sync"
	"time"
)

// rateLimiter caps collect requests per client IP over a sliding window so
// a misbehaving page cannot flood the visits table.
type rateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	l := &rateLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
	}
	go l.cleanup()
	return l
}

// allow reports whether ip is under the limit and records the hit.
func (l *rateLimiter) allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(ip, now.Add(-l.window))
	if len(kept) >= l.max {
		return false
	}
	l.hits[ip] = append(kept, now)
	return true
}

// prune drops hits older than cutoff. Caller holds the lock.
func (l *rateLimiter) prune(ip string, cutoff time.Time) []time.Time {
	hits := l.hits[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.hits[ip] = kept
	return kept
}

func (l *rateLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	for range ticker.C {
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for ip := range l.hits {
			if len(l.prune(ip, cutoff)) == 0 {
				delete(l.hits, ip)
			}
		}
		l.mu.Unlock()
	}
}
