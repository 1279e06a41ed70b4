package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FORWARDER
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the pub/sub channel used for progress events.
const DefaultChannel = "pubsub:learning-hub:events"

// Transport is the pub/sub side of the Redis cache.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisForwarder publishes local events to Redis and replays events of
// other instances onto the local bus.
type RedisForwarder struct {
	transport  Transport
	local      shared.EventPublisher
	channel    string
	instanceID string
	timeout    time.Duration
	log        *logger.Logger
}

// RedisForwarderConfig contains configuration for RedisForwarder.
type RedisForwarderConfig struct {
	Transport Transport

	// Local receives events published by other instances
	Local shared.EventPublisher

	// Channel defaults to DefaultChannel
	Channel string

	// InstanceID filters out self-published events; generated when empty
	InstanceID string

	// PublishTimeout bounds one Redis publish (default 2s)
	PublishTimeout time.Duration

	Logger *logger.Logger
}

// NewRedisForwarder creates a forwarder.
func NewRedisForwarder(cfg RedisForwarderConfig) (*RedisForwarder, error) {
	if cfg.Transport == nil {
		return nil, errors.New("redis transport is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &RedisForwarder{
		transport:  cfg.Transport,
		local:      cfg.Local,
		channel:    cfg.Channel,
		instanceID: cfg.InstanceID,
		timeout:    cfg.PublishTimeout,
		log:        cfg.Logger.With(logger.Component("redis_forwarder")),
	}, nil
}

// Channel returns the pub/sub channel name.
func (f *RedisForwarder) Channel() string {
	return f.channel
}

// Forward is a shared.EventHandler that publishes event to Redis.
// Remote replays are not forwarded again.
func (f *RedisForwarder) Forward(event shared.Event) error {
	if _, remote := event.(*remoteEvent); remote {
		return nil
	}

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  f.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.transport.Publish(ctx, f.channel, data); err != nil {
		return fmt.Errorf("publish event to redis: %w", err)
	}
	return nil
}

// HandleRemote decodes one pub/sub message and replays it locally.
func (f *RedisForwarder) HandleRemote(payload []byte) error {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	if envelope.InstanceID == f.instanceID || f.local == nil {
		return nil
	}

	return f.local.Publish(&remoteEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	})
}

// Listen replays messages until ctx is done or messages is closed.
func (f *RedisForwarder) Listen(ctx context.Context, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := f.HandleRemote(msg); err != nil {
				f.log.Warn("failed to replay remote event", logger.Err(err))
			}
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string           `json:"instance_id"`
	EventType   shared.EventType `json:"event_type"`
	AggregateID string           `json:"aggregate_id"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Payload     map[string]any   `json:"payload"`
}

// remoteEvent is an event received from another instance.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]any
}

func (e *remoteEvent) EventType() shared.EventType { return e.eventType }
func (e *remoteEvent) AggregateID() string         { return e.aggregateID }
func (e *remoteEvent) OccurredAt() time.Time       { return e.occurredAt }
func (e *remoteEvent) Payload() map[string]any     { return e.payload }
