// Package ratelimit gates message frequency per connection with a fixed
// window counter.
package ratelimit

import (
	"sync"
	"time"
)

// Default window parameters: 30 accepted messages per 60 seconds.
const (
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

type window struct {
	count     int
	expiresAt time.Time
}

// Limiter tracks one fixed window per connection. Rejection is
// idempotent: attempts inside an exhausted window do not grow the counter.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*window
	now     func() time.Time
}

// NewLimiter creates a limiter accepting limit messages per window.
func NewLimiter(limit int, windowLen time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  windowLen,
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether a message attempt on this connection is accepted.
func (l *Limiter) Allow(connectionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.entries[connectionID]
	if !ok || now.After(w.expiresAt) {
		l.entries[connectionID] = &window{count: 1, expiresAt: now.Add(l.window)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remove discards the window for a closed connection.
func (l *Limiter) Remove(connectionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, connectionID)
}
