package command

import (
	"context"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// Daily activity signal (login). Drives the streak and the streak milestones
// (7 days, 30 days).
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains the user whose activity is recorded.
type RecordActivityCommand struct {
	UserID string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	if c.UserID == "" {
		return shared.Invalid("user", "RecordActivity", "user id is required")
	}
	return nil
}

// RecordActivityResult contains the streak after the update.
type RecordActivityResult struct {
	Change       user.StreakChange `json:"change"`
	StreakDays   int               `json:"streakDays"`
	Previous     int               `json:"previous"`
	Achievements []string          `json:"achievements,omitempty"`
}

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(deps Deps) *RecordActivityHandler {
	deps = deps.withDefaults()
	return &RecordActivityHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("record_activity")),
	}
}

// Handle executes the record activity command.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	u, err := h.deps.loadOrCreateUser(ctx, cmd.UserID, now)
	if err != nil {
		return nil, err
	}

	streak := u.RecordActivity(now)
	result := &RecordActivityResult{
		Change:     streak.Change,
		StreakDays: streak.Current,
		Previous:   streak.Previous,
	}

	var events []shared.Event
	switch streak.Change {
	case user.StreakStarted, user.StreakExtended:
		events = append(events, shared.NewStreakUpdatedEvent(u.ID, streak.Current, now))
	case user.StreakReset:
		if streak.Previous > 1 {
			events = append(events, shared.NewStreakBrokenEvent(u.ID, streak.Previous, now))
		}
		events = append(events, shared.NewStreakUpdatedEvent(u.ID, streak.Current, now))
	}

	if h.deps.featureOn(config.FeatureUserAchievements, u.ID) {
		names, unlocked := unlockForUser(u, reward.StreakUnlocks(streak.Current), "", now)
		result.Achievements = names
		events = append(events, unlocked...)
	}

	if err := h.deps.Users.Save(ctx, u); err != nil {
		h.log.Error("failed to save user", logger.UserID(u.ID), logger.Err(err))
		return nil, err
	}
	h.deps.publish(events)

	if streak.Change != user.StreakUnchanged {
		h.log.Debug("streak updated",
			logger.UserID(u.ID),
			logger.String("change", string(streak.Change)),
			logger.Int("days", streak.Current))
	}
	return result, nil
}
