package command

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// END SESSION COMMAND
// The lesson player paused or closed the video.
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionCommand contains the data to close the open watch session.
type EndSessionCommand struct {
	UserID      string
	LessonID    string
	EndPosition float64
	Completed   bool
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	if err := requireIDs("EndSession", c.UserID, c.LessonID); err != nil {
		return err
	}
	if c.EndPosition < 0 {
		return shared.Invalid("progress", "EndSession", "end position cannot be negative")
	}
	return nil
}

// EndSessionResult reports the closed session.
type EndSessionResult struct {
	// Closed is false when no session was open; nothing was changed then.
	Closed    bool                   `json:"closed"`
	Session   *progress.WatchSession `json:"session,omitempty"`
	TimeSpent int                    `json:"timeSpent"`
}

// EndSessionHandler handles the EndSessionCommand.
type EndSessionHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewEndSessionHandler creates a new EndSessionHandler.
func NewEndSessionHandler(deps Deps) *EndSessionHandler {
	deps = deps.withDefaults()
	return &EndSessionHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("end_session")),
	}
}

// Handle executes the end session command.
func (h *EndSessionHandler) Handle(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	rec, err := h.deps.Records.Get(ctx, cmd.UserID, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	session, ok := rec.EndSession(cmd.EndPosition, cmd.Completed, now)
	if !ok {
		h.log.Debug("no open session", logger.RecordID(rec.ID))
		return &EndSessionResult{Closed: false, TimeSpent: rec.TimeSpent}, nil
	}

	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return nil, err
	}

	h.deps.publish([]shared.Event{
		shared.NewSessionEndedEvent(cmd.UserID, cmd.LessonID, session.Duration, session.Completed, now),
	})
	h.log.Debug("session ended",
		logger.RecordID(rec.ID),
		logger.Int("duration", session.Duration),
		logger.Int("time_spent", rec.TimeSpent))

	return &EndSessionResult{Closed: true, Session: &session, TimeSpent: rec.TimeSpent}, nil
}
