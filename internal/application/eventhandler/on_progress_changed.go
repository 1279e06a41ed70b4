// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER
// Сбрасывает кэш статистики пользователя, когда меняются данные отчёта:
// начало сессии (урок переходит в in_progress), просмотр, завершение урока,
// оценка, закладка, вовлечённость.
// Aggregate id событий прогресса - id пользователя.
// ═══════════════════════════════════════════════════════════════════════════

// StatsInvalidator сбрасывает кэшированный отчёт.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// OnProgressChangedHandler обрабатывает события прогресса.
type OnProgressChangedHandler struct {
	cache   StatsInvalidator
	timeout time.Duration
	log     *logger.Logger
}

// NewOnProgressChangedHandler создаёт обработчик.
func NewOnProgressChangedHandler(cache StatsInvalidator, log *logger.Logger) *OnProgressChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnProgressChangedHandler{
		cache:   cache,
		timeout: 2 * time.Second,
		log:     log.With(logger.Component("eventhandler"), logger.Operation("stats_invalidation")),
	}
}

// EventTypes возвращает события, на которые подписывается обработчик.
func (h *OnProgressChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventSessionStarted,
		shared.EventProgressRecorded,
		shared.EventLessonCompleted,
		shared.EventRecordUpdated,
	}
}

// Register подписывает обработчик на шину.
func (h *OnProgressChangedHandler) Register(sub shared.EventSubscriber) error {
	for _, t := range h.EventTypes() {
		if err := sub.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle сбрасывает кэш пользователя из события.
func (h *OnProgressChangedHandler) Handle(event shared.Event) error {
	userID := event.AggregateID()
	if userID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx, userID); err != nil {
		h.log.Warn("failed to invalidate stats cache",
			logger.UserID(userID),
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
		return err
	}
	return nil
}
