package command

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOOKMARK LESSON COMMAND
// A lesson can be bookmarked before it is watched, so the record is created
// on demand.
// ══════════════════════════════════════════════════════════════════════════════

// BookmarkLessonCommand sets or clears the bookmark.
type BookmarkLessonCommand struct {
	UserID   string
	LessonID string
	Flag     bool
}

// Validate validates the command.
func (c BookmarkLessonCommand) Validate() error {
	return requireIDs("Bookmark", c.UserID, c.LessonID)
}

// BookmarkLessonHandler handles the BookmarkLessonCommand.
type BookmarkLessonHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewBookmarkLessonHandler creates a new BookmarkLessonHandler.
func NewBookmarkLessonHandler(deps Deps) *BookmarkLessonHandler {
	deps = deps.withDefaults()
	return &BookmarkLessonHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("bookmark_lesson")),
	}
}

// Handle executes the bookmark command.
func (h *BookmarkLessonHandler) Handle(ctx context.Context, cmd BookmarkLessonCommand) (*progress.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	if _, err := h.deps.Lessons.Get(ctx, cmd.LessonID); err != nil {
		return nil, err
	}
	rec, err := h.deps.loadOrCreateRecord(ctx, cmd.UserID, cmd.LessonID, now)
	if err != nil {
		return nil, err
	}

	rec.SetBookmark(cmd.Flag, now)
	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return nil, err
	}

	h.deps.publish([]shared.Event{
		shared.NewRecordUpdatedEvent(cmd.UserID, cmd.LessonID, progress.FieldBookmark, now),
	})
	h.log.Debug("bookmark updated", logger.RecordID(rec.ID), logger.Bool("bookmarked", cmd.Flag))
	return rec, nil
}
