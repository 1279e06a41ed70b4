package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kidlearn/learning-hub/pkg/circuitbreaker"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "stats:u1", StatsKey("u1"))
	assert.Equal(t, "ratelimit:10.0.0.1:42", RateLimitKey("10.0.0.1", 42))
	assert.Equal(t, "pubsub:events", PubSubChannel("events"))
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.options()
	assert.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	cfg.URL = "redis://:secret@cache:6380/2"
	opts, err = cfg.options()
	assert.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)

	cfg.URL = "http://nope"
	_, err = cfg.options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestCache_ArgumentChecks(t *testing.T) {
	c := NewCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}))
	defer c.Close()
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Get(ctx, "", new(int)), ErrCacheKeyEmpty)
	_, err := c.IncrWithExpire(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrCacheInvalidTTL)
	assert.NoError(t, c.Delete(ctx))
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(nil, 0, time.Minute)
	ok, err := rl.Allow(context.Background(), "k")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestStatisticsCache_BreakerFailsFast(t *testing.T) {
	c := NewCacheFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1}))
	defer c.Close()
	ctx := context.Background()

	sc := NewStatisticsCache(c, 0).WithBreaker(circuitbreaker.New("stats", circuitbreaker.WithFailureThreshold(1)))

	_, found, err := sc.Get(ctx, "u1")
	assert.Error(t, err)
	assert.False(t, found)
	assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)

	_, _, err = sc.Get(ctx, "u1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, sc.Invalidate(ctx, "u1"), circuitbreaker.ErrOpen)
}
