// Package shared contains common domain types, errors and events
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. The aggregate id of every progress event is the user id,
// so per-user consumers (statistics cache, metrics) can key on it directly.
const (
	// Watch session events
	EventSessionStarted EventType = "progress.session_started"
	EventSessionEnded   EventType = "progress.session_ended"

	// Progress events
	EventProgressRecorded EventType = "progress.recorded"
	EventLessonCompleted  EventType = "progress.lesson_completed"
	EventRecordUpdated    EventType = "progress.record_updated"

	// Reward events
	EventPointsAwarded       EventType = "reward.points_awarded"
	EventLevelUp             EventType = "reward.level_up"
	EventAchievementUnlocked EventType = "reward.achievement_unlocked"

	// Streak events
	EventStreakUpdated EventType = "user.streak_updated"
	EventStreakBroken  EventType = "user.streak_broken"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Watch Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when the lesson player opens a watch session.
type SessionStartedEvent struct {
	BaseEvent
	LessonID      string  `json:"lesson_id"`
	StartPosition float64 `json:"start_position"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":      e.LessonID,
		"start_position": e.StartPosition,
	}
}

// NewSessionStartedEvent creates a new SessionStartedEvent.
func NewSessionStartedEvent(userID, lessonID string, startPosition float64, at time.Time) SessionStartedEvent {
	return SessionStartedEvent{
		BaseEvent:     NewBaseEvent(EventSessionStarted, userID, at),
		LessonID:      lessonID,
		StartPosition: startPosition,
	}
}

// SessionEndedEvent is emitted when an open watch session is closed.
type SessionEndedEvent struct {
	BaseEvent
	LessonID        string `json:"lesson_id"`
	DurationSeconds int    `json:"duration_seconds"`
	Completed       bool   `json:"completed"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":        e.LessonID,
		"duration_seconds": e.DurationSeconds,
		"completed":        e.Completed,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(userID, lessonID string, durationSeconds int, completed bool, at time.Time) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent:       NewBaseEvent(EventSessionEnded, userID, at),
		LessonID:        lessonID,
		DurationSeconds: durationSeconds,
		Completed:       completed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ProgressRecordedEvent is emitted on every accepted watch-time update.
type ProgressRecordedEvent struct {
	BaseEvent
	LessonID   string  `json:"lesson_id"`
	WatchTime  float64 `json:"watch_time"`
	Percentage int     `json:"percentage"`
}

// Payload implements Event interface.
func (e ProgressRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":  e.LessonID,
		"watch_time": e.WatchTime,
		"percentage": e.Percentage,
	}
}

// NewProgressRecordedEvent creates a new ProgressRecordedEvent.
func NewProgressRecordedEvent(userID, lessonID string, watchTime float64, percentage int, at time.Time) ProgressRecordedEvent {
	return ProgressRecordedEvent{
		BaseEvent:  NewBaseEvent(EventProgressRecorded, userID, at),
		LessonID:   lessonID,
		WatchTime:  watchTime,
		Percentage: percentage,
	}
}

// LessonCompletedEvent is emitted exactly once per record, at the completion transition.
type LessonCompletedEvent struct {
	BaseEvent
	LessonID   string `json:"lesson_id"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":  e.LessonID,
		"category":   e.Category,
		"difficulty": e.Difficulty,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(userID, lessonID, category, difficulty string, at time.Time) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:  NewBaseEvent(EventLessonCompleted, userID, at),
		LessonID:   lessonID,
		Category:   category,
		Difficulty: difficulty,
	}
}

// RecordUpdatedEvent is emitted when rating, bookmark or engagement fields change.
type RecordUpdatedEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id"`
	Field    string `json:"field"`
}

// Payload implements Event interface.
func (e RecordUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"field":     e.Field,
	}
}

// NewRecordUpdatedEvent creates a new RecordUpdatedEvent.
func NewRecordUpdatedEvent(userID, lessonID, field string, at time.Time) RecordUpdatedEvent {
	return RecordUpdatedEvent{
		BaseEvent: NewBaseEvent(EventRecordUpdated, userID, at),
		LessonID:  lessonID,
		Field:     field,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsAwardedEvent is emitted when completion points are paid to the user balance.
type PointsAwardedEvent struct {
	BaseEvent
	LessonID    string `json:"lesson_id"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"total_points"`
}

// Payload implements Event interface.
func (e PointsAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":    e.LessonID,
		"points":       e.Points,
		"total_points": e.TotalPoints,
	}
}

// NewPointsAwardedEvent creates a new PointsAwardedEvent.
func NewPointsAwardedEvent(userID, lessonID string, points, totalPoints int, at time.Time) PointsAwardedEvent {
	return PointsAwardedEvent{
		BaseEvent:   NewBaseEvent(EventPointsAwarded, userID, at),
		LessonID:    lessonID,
		Points:      points,
		TotalPoints: totalPoints,
	}
}

// LevelUpEvent is emitted when a points award moves the user to a higher level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// AchievementUnlockedEvent is emitted for record-scope and user-scope unlocks.
// LessonID is empty for user-scope achievements.
type AchievementUnlockedEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id,omitempty"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Scope    string `json:"scope"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"name":      e.Name,
		"kind":      e.Kind,
		"scope":     e.Scope,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, lessonID, name, kind, scope string, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent: NewBaseEvent(EventAchievementUnlocked, userID, at),
		LessonID:  lessonID,
		Name:      name,
		Kind:      kind,
		Scope:     scope,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when the daily streak grows or starts.
type StreakUpdatedEvent struct {
	BaseEvent
	StreakDays int `json:"streak_days"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"streak_days": e.StreakDays,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, streakDays int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventStreakUpdated, userID, at),
		StreakDays: streakDays,
	}
}

// StreakBrokenEvent is emitted when a gap resets the streak to 1.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID, at),
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher drops every event. Useful when no bus is configured.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
