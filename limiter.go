package folio

import (
	"sync"
	"time"
)

// RateLimiter is a per-IP sliding-window limiter used for admin logins and
// contact form submissions.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
}

// NewRateLimiter creates a RateLimiter that allows max hits per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
	}
	go l.cleanup()
	return l
}

// Allow reports whether ip is under the limit and records the hit.
func (l *RateLimiter) Allow(ip string) bool {
	if !l.Check(ip) {
		return false
	}
	l.Record(ip)
	return true
}

// Check reports whether ip is under the limit without recording a hit.
// Login flows call Record only on failure so successful logins stay free.
func (l *RateLimiter) Check(ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(ip, cutoff)
	return len(kept) < l.max
}

// Record registers a hit for ip.
func (l *RateLimiter) Record(ip string) {
	l.mu.Lock()
	l.hits[ip] = append(l.hits[ip], time.Now())
	l.mu.Unlock()
}

// prune drops hits older than cutoff. Caller holds the lock.
func (l *RateLimiter) prune(ip string, cutoff time.Time) []time.Time {
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

func (l *RateLimiter) cleanup() {
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
