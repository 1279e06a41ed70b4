package command

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LESSON COMMAND
// Stars 1..5 given after watching. Completed records stay rateable.
// ══════════════════════════════════════════════════════════════════════════════

// RateLessonCommand sets the rating of a watched lesson.
type RateLessonCommand struct {
	UserID   string
	LessonID string
	Rating   int
}

// Validate validates the command.
func (c RateLessonCommand) Validate() error {
	if err := requireIDs("Rate", c.UserID, c.LessonID); err != nil {
		return err
	}
	if c.Rating < 1 || c.Rating > 5 {
		return shared.ErrInvalidRating
	}
	return nil
}

// RateLessonHandler handles the RateLessonCommand.
type RateLessonHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewRateLessonHandler creates a new RateLessonHandler.
func NewRateLessonHandler(deps Deps) *RateLessonHandler {
	deps = deps.withDefaults()
	return &RateLessonHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("rate_lesson")),
	}
}

// Handle executes the rate command. The record must already exist.
func (h *RateLessonHandler) Handle(ctx context.Context, cmd RateLessonCommand) (*progress.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	rec, err := h.deps.Records.Get(ctx, cmd.UserID, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if err := rec.Rate(cmd.Rating, now); err != nil {
		return nil, err
	}
	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return nil, err
	}

	h.deps.publish([]shared.Event{
		shared.NewRecordUpdatedEvent(cmd.UserID, cmd.LessonID, progress.FieldRating, now),
	})
	h.log.Debug("lesson rated", logger.RecordID(rec.ID), logger.Int("rating", cmd.Rating))
	return rec, nil
}
