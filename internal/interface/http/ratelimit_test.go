package http

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit, capacity int) (*MemoryLimiter, *time.Time) {
	l := NewMemoryLimiter(limit, time.Minute, capacity)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiter_Window(t *testing.T) {
	l, now := newTestLimiter(2, 10)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i)
	}

	ok, _ := l.Allow(ctx, "b")
	assert.True(t, ok)

	*now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryLimiter_EvictsLeastRecentlySeen(t *testing.T) {
	l, now := newTestLimiter(5, 2)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a")
	*now = now.Add(time.Second)
	_, _ = l.Allow(ctx, "b")
	*now = now.Add(time.Second)
	_, _ = l.Allow(ctx, "a")
	*now = now.Add(time.Second)
	_, _ = l.Allow(ctx, "c")

	assert.Equal(t, 2, l.Len())
	assert.Contains(t, l.clients, "a")
	assert.Contains(t, l.clients, "c")
	assert.NotContains(t, l.clients, "b")
}

func TestMemoryLimiter_EvictsEmptyKeyWhenOldest(t *testing.T) {
	for i := 0; i < 20; i++ {
		l, now := newTestLimiter(5, 2)
		ctx := context.Background()

		_, _ = l.Allow(ctx, "")
		*now = now.Add(time.Second)
		_, _ = l.Allow(ctx, "b")
		*now = now.Add(time.Second)
		_, _ = l.Allow(ctx, "c")

		assert.Equal(t, 2, l.Len())
		assert.NotContains(t, l.clients, "")
		assert.Contains(t, l.clients, "b")
		assert.Contains(t, l.clients, "c")
	}
}

func TestMemoryLimiter_EvictsExpiredFirst(t *testing.T) {
	l, now := newTestLimiter(5, 2)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	*now = now.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "c")

	assert.Equal(t, 1, l.Len())
}

func TestMemoryLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(0, 1)
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Zero(t, l.Len())
}
