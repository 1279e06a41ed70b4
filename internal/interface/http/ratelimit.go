package http

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// Fixed window per client. The in-process limiter tracks at most capacity
// clients; when full, expired windows are dropped first, then the client
// seen least recently. Redis backs the same interface across instances.
// ══════════════════════════════════════════════════════════════════════════════

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type clientWindow struct {
	start    time.Time
	lastSeen time.Time
	count    int
}

// MemoryLimiter is a bounded in-process Limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	capacity int
	now      func() time.Time
	clients  map[string]*clientWindow
}

// NewMemoryLimiter creates a limiter allowing limit requests per window.
func NewMemoryLimiter(limit int, window time.Duration, capacity int) *MemoryLimiter {
	if capacity <= 0 {
		capacity = 10000
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		limit:    limit,
		window:   window,
		capacity: capacity,
		now:      time.Now,
		clients:  make(map[string]*clientWindow),
	}
}

// Allow implements Limiter. limit <= 0 disables limiting.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= l.capacity {
			l.evict(now)
		}
		c = &clientWindow{start: now}
		l.clients[key] = c
	} else if now.Sub(c.start) >= l.window {
		c.start = now
		c.count = 0
	}

	c.lastSeen = now
	c.count++
	return c.count <= l.limit, nil
}

// Len returns the number of tracked clients.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// evict frees at least one slot. Caller holds the lock.
func (l *MemoryLimiter) evict(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.start) >= l.window {
			delete(l.clients, key)
		}
	}
	if len(l.clients) < l.capacity {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, c := range l.clients {
		if !found || c.lastSeen.Before(oldest) {
			oldestKey, oldest, found = key, c.lastSeen, true
		}
	}
	if found {
		delete(l.clients, oldestKey)
	}
}
