package redis

import (
	"context"
	"errors"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/statistics"
	"github.com/kidlearn/learning-hub/pkg/circuitbreaker"
)

// StatisticsCache stores computed statistics reports per user.
type StatisticsCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
}

// NewStatisticsCache creates a StatisticsCache. A non-positive ttl falls
// back to TTLStatsDefault.
func NewStatisticsCache(cache *Cache, ttl time.Duration) *StatisticsCache {
	if ttl <= 0 {
		ttl = TTLStatsDefault
	}
	return &StatisticsCache{cache: cache, ttl: ttl}
}

// WithBreaker routes every Redis call through b. While b is open calls
// fail fast with circuitbreaker.ErrOpen.
func (s *StatisticsCache) WithBreaker(b *circuitbreaker.Breaker) *StatisticsCache {
	s.breaker = b
	return s
}

func (s *StatisticsCache) do(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Execute(ctx, fn)
}

// Get returns the cached report and whether it was found.
func (s *StatisticsCache) Get(ctx context.Context, userID string) (*statistics.Report, bool, error) {
	var (
		report statistics.Report
		found  bool
	)
	err := s.do(ctx, func(ctx context.Context) error {
		err := s.cache.Get(ctx, StatsKey(userID), &report)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &report, true, nil
}

// Set caches a report.
func (s *StatisticsCache) Set(ctx context.Context, userID string, report *statistics.Report) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, StatsKey(userID), report, s.ttl)
	})
}

// Invalidate drops the cached report of a user.
func (s *StatisticsCache) Invalidate(ctx context.Context, userID string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.cache.Delete(ctx, StatsKey(userID))
	})
}
