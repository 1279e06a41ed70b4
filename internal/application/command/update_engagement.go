package command

import (
	"context"
	"unicode/utf8"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ENGAGEMENT COMMAND
// Parent or teacher feedback: attention, enjoyment and confidence 1..5 plus
// free-text notes.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateEngagementCommand replaces the engagement block of a record.
type UpdateEngagementCommand struct {
	UserID     string
	LessonID   string
	Engagement reward.Engagement
	Notes      string
}

// Validate validates the command.
func (c UpdateEngagementCommand) Validate() error {
	if err := requireIDs("UpdateEngagement", c.UserID, c.LessonID); err != nil {
		return err
	}
	e := c.Engagement
	for _, level := range []int{e.AttentionLevel, e.EnjoymentLevel, e.ConfidenceLevel} {
		if level < 1 || level > 5 {
			return shared.ErrInvalidEngagement
		}
	}
	if utf8.RuneCountInString(c.Notes) > progress.MaxNotesLength {
		return shared.ErrNotesTooLong
	}
	return nil
}

// UpdateEngagementHandler handles the UpdateEngagementCommand.
type UpdateEngagementHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewUpdateEngagementHandler creates a new UpdateEngagementHandler.
func NewUpdateEngagementHandler(deps Deps) *UpdateEngagementHandler {
	deps = deps.withDefaults()
	return &UpdateEngagementHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("update_engagement")),
	}
}

// Handle executes the command. The record must already exist.
func (h *UpdateEngagementHandler) Handle(ctx context.Context, cmd UpdateEngagementCommand) (*progress.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	rec, err := h.deps.Records.Get(ctx, cmd.UserID, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if err := rec.UpdateEngagement(cmd.Engagement, cmd.Notes, now); err != nil {
		return nil, err
	}
	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return nil, err
	}

	h.deps.publish([]shared.Event{
		shared.NewRecordUpdatedEvent(cmd.UserID, cmd.LessonID, progress.FieldEngagement, now),
	})
	h.log.Debug("engagement updated", logger.RecordID(rec.ID))
	return rec, nil
}
