package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window limiter shared by all instances.
type RateLimiter struct {
	cache  *Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window for every key.
func NewRateLimiter(cache *Cache, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{cache: cache, limit: limit, window: window, now: time.Now}
}

// Allow counts a request for key and reports whether it fits the window.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}
	bucket := r.now().UnixNano() / int64(r.window)
	n, err := r.cache.IncrWithExpire(ctx, RateLimitKey(key, bucket), r.window)
	if err != nil {
		return false, err
	}
	return n <= int64(r.limit), nil
}
