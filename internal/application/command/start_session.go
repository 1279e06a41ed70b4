package command

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// The lesson player opened a video. Creates the record on first visit and
// appends an open watch session.
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand contains the data to open a watch session.
type StartSessionCommand struct {
	UserID        string
	LessonID      string
	StartPosition float64
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if err := requireIDs("StartSession", c.UserID, c.LessonID); err != nil {
		return err
	}
	if c.StartPosition < 0 {
		return shared.Invalid("progress", "StartSession", "start position cannot be negative")
	}
	return nil
}

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(deps Deps) *StartSessionHandler {
	deps = deps.withDefaults()
	return &StartSessionHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("start_session")),
	}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (progress.SessionHandle, error) {
	if err := cmd.Validate(); err != nil {
		return progress.SessionHandle{}, err
	}
	now := h.deps.Clock.Now()

	if _, err := h.deps.activeLesson(ctx, cmd.LessonID); err != nil {
		return progress.SessionHandle{}, err
	}

	rec, err := h.deps.loadOrCreateRecord(ctx, cmd.UserID, cmd.LessonID, now)
	if err != nil {
		h.log.Warn("failed to load record", logger.UserID(cmd.UserID), logger.LessonID(cmd.LessonID), logger.Err(err))
		return progress.SessionHandle{}, err
	}

	handle, err := rec.StartSession(cmd.StartPosition, now)
	if err != nil {
		return progress.SessionHandle{}, err
	}
	h.deps.compactIfNeeded(rec, now)

	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return progress.SessionHandle{}, err
	}

	h.deps.publish([]shared.Event{
		shared.NewSessionStartedEvent(cmd.UserID, cmd.LessonID, cmd.StartPosition, now),
	})
	h.log.Debug("session started",
		logger.RecordID(rec.ID),
		logger.Int("attempts", handle.Attempts),
		logger.Int("session_index", handle.SessionIndex))

	return handle, nil
}
