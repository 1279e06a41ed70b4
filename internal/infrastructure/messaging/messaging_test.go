package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

var at = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var completed, all int
	require.NoError(t, bus.Subscribe(shared.EventLessonCompleted, func(shared.Event) error {
		completed++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("u1", "l1", "Art", "easy", at)))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 3, at)))

	assert.Equal(t, 1, completed)
	assert.Equal(t, 2, all)
}

func TestInMemoryEventBus_HandlerFailuresDoNotReachPublisher(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { calls++; return nil }))

	assert.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 1, at)))
	assert.Equal(t, 1, calls)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		n.Add(1)
		return nil
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", i, at)))
	}
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(5), n.Load())
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewStreakUpdatedEvent("u1", 1, at)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.ErrorIs(t, syncBus().Subscribe(shared.EventLevelUp, nil), ErrNilHandler)
	assert.ErrorIs(t, syncBus().Publish(nil), ErrNilEvent)
}

type memTransport struct {
	mu       sync.Mutex
	messages [][]byte
}

func (m *memTransport) Publish(_ context.Context, _ string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, payload)
	return nil
}

func TestRedisForwarder_RoundTrip(t *testing.T) {
	transport := &memTransport{}

	sender, err := NewRedisForwarder(RedisForwarderConfig{Transport: transport, InstanceID: "a"})
	require.NoError(t, err)

	receiverBus := syncBus()
	var got []shared.Event
	require.NoError(t, receiverBus.SubscribeAll(func(e shared.Event) error {
		got = append(got, e)
		return nil
	}))
	receiver, err := NewRedisForwarder(RedisForwarderConfig{Transport: transport, Local: receiverBus, InstanceID: "b"})
	require.NoError(t, err)
	require.NoError(t, receiverBus.SubscribeAll(receiver.Forward))

	require.NoError(t, sender.Forward(shared.NewLevelUpEvent("u1", 1, 2, at)))
	require.Len(t, transport.messages, 1)

	// the sender ignores its own message
	require.NoError(t, sender.HandleRemote(transport.messages[0]))

	require.NoError(t, receiver.HandleRemote(transport.messages[0]))
	require.Len(t, got, 1)
	assert.Equal(t, shared.EventLevelUp, got[0].EventType())
	assert.Equal(t, "u1", got[0].AggregateID())
	assert.True(t, got[0].OccurredAt().Equal(at))
	assert.EqualValues(t, 2, got[0].Payload()["new_level"])

	// replays are not forwarded back
	assert.Len(t, transport.messages, 1)

	assert.Error(t, receiver.HandleRemote([]byte("{")))
}

func TestRedisForwarder_Listen(t *testing.T) {
	bus := syncBus()
	var n int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { n++; return nil }))

	transport := &memTransport{}
	other, _ := NewRedisForwarder(RedisForwarderConfig{Transport: transport, InstanceID: "other"})
	require.NoError(t, other.Forward(shared.NewStreakBrokenEvent("u1", 4, at)))

	fwd, err := NewRedisForwarder(RedisForwarderConfig{Transport: transport, Local: bus})
	require.NoError(t, err)

	messages := make(chan []byte, 2)
	messages <- transport.messages[0]
	messages <- []byte("not json")
	close(messages)

	fwd.Listen(context.Background(), messages)
	assert.Equal(t, 1, n)

	_, err = NewRedisForwarder(RedisForwarderConfig{})
	assert.Error(t, err)
}
