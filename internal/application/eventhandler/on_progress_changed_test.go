package eventhandler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

type fakeInvalidator struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return f.err
}

type fakeSubscriber struct {
	handlers map[shared.EventType]shared.EventHandler
}

func (f *fakeSubscriber) Subscribe(t shared.EventType, h shared.EventHandler) error {
	f.handlers[t] = h
	return nil
}

func (f *fakeSubscriber) SubscribeAll(shared.EventHandler) error { return nil }

func TestOnProgressChanged_InvalidatesUser(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := &fakeInvalidator{}
	h := NewOnProgressChangedHandler(cache, nil)

	require.NoError(t, h.Handle(shared.NewProgressRecordedEvent("u1", "l1", 30, 5, now)))
	require.NoError(t, h.Handle(shared.NewRecordUpdatedEvent("u2", "l1", "rating", now)))

	assert.Equal(t, []string{"u1", "u2"}, cache.users)
}

func TestOnProgressChanged_PropagatesCacheError(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := &fakeInvalidator{err: errors.New("redis down")}
	h := NewOnProgressChangedHandler(cache, nil)

	assert.Error(t, h.Handle(shared.NewLessonCompletedEvent("u1", "l1", "Art", "easy", now)))
}

func TestOnProgressChanged_Register(t *testing.T) {
	sub := &fakeSubscriber{handlers: map[shared.EventType]shared.EventHandler{}}
	h := NewOnProgressChangedHandler(&fakeInvalidator{}, nil)

	require.NoError(t, h.Register(sub))

	assert.Len(t, sub.handlers, 4)
	assert.Contains(t, sub.handlers, shared.EventSessionStarted)
	assert.Contains(t, sub.handlers, shared.EventProgressRecorded)
	assert.Contains(t, sub.handlers, shared.EventLessonCompleted)
	assert.Contains(t, sub.handlers, shared.EventRecordUpdated)
	assert.NotContains(t, sub.handlers, shared.EventSessionEnded)
}

func TestOnProgressChanged_SessionStartInvalidatesUser(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := &fakeSubscriber{handlers: map[shared.EventType]shared.EventHandler{}}
	cache := &fakeInvalidator{}
	require.NoError(t, NewOnProgressChangedHandler(cache, nil).Register(sub))

	handle := sub.handlers[shared.EventSessionStarted]
	require.NotNil(t, handle)
	require.NoError(t, handle(shared.NewSessionStartedEvent("u1", "l1", 0, now)))

	assert.Equal(t, []string{"u1"}, cache.users)
}
