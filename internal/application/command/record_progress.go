package command

import (
	"context"
	"math"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PROGRESS COMMAND
// Periodic watch-time update from the lesson player. Crossing the completion
// threshold for the first time pays points to the user and unlocks
// achievements at record and profile scope.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand contains one watch-time observation.
type RecordProgressCommand struct {
	UserID          string
	LessonID        string
	WatchTime       float64 // seconds watched so far
	TotalDuration   float64 // seconds
	CurrentPosition float64
}

// Validate validates the command.
func (c RecordProgressCommand) Validate() error {
	if err := requireIDs("RecordProgress", c.UserID, c.LessonID); err != nil {
		return err
	}
	if c.WatchTime < 0 || math.IsNaN(c.WatchTime) || math.IsInf(c.WatchTime, 0) {
		return shared.ErrNegativeWatchTime
	}
	if c.TotalDuration <= 0 || math.IsNaN(c.TotalDuration) || math.IsInf(c.TotalDuration, 0) {
		return shared.ErrNonPositiveDuration
	}
	return nil
}

// RecordProgressResult contains the outcome of a progress update.
type RecordProgressResult struct {
	Completed            bool    `json:"completed"`
	FirstTime            bool    `json:"firstTime"`
	CompletionPercentage int     `json:"completionPercentage"`
	WatchTime            float64 `json:"watchTime"`

	// Set on the first completion only.
	PointsAwarded int      `json:"pointsAwarded,omitempty"`
	LevelUp       bool     `json:"levelUp,omitempty"`
	NewLevel      int      `json:"newLevel,omitempty"`
	Achievements  []string `json:"achievements,omitempty"`
}

// RecordProgressHandler handles the RecordProgressCommand.
type RecordProgressHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewRecordProgressHandler creates a new RecordProgressHandler.
func NewRecordProgressHandler(deps Deps) *RecordProgressHandler {
	deps = deps.withDefaults()
	return &RecordProgressHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("record_progress")),
	}
}

// Handle executes the record progress command.
func (h *RecordProgressHandler) Handle(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()

	l, err := h.deps.activeLesson(ctx, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	rec, err := h.deps.loadOrCreateRecord(ctx, cmd.UserID, cmd.LessonID, now)
	if err != nil {
		h.log.Warn("failed to load record", logger.UserID(cmd.UserID), logger.LessonID(cmd.LessonID), logger.Err(err))
		return nil, err
	}

	outcome, err := rec.RecordProgress(cmd.WatchTime, cmd.TotalDuration, cmd.CurrentPosition, now)
	if err != nil {
		return nil, err
	}

	result := &RecordProgressResult{
		Completed:            outcome.Completed,
		FirstTime:            outcome.FirstTime,
		CompletionPercentage: rec.CompletionPercentage,
		WatchTime:            rec.WatchTime,
	}
	events := []shared.Event{
		shared.NewProgressRecordedEvent(cmd.UserID, cmd.LessonID, rec.WatchTime, rec.CompletionPercentage, now),
	}

	if !outcome.FirstTime {
		if err := h.deps.Records.Save(ctx, rec); err != nil {
			h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
			return nil, err
		}
		h.deps.publish(events)
		h.log.Debug("progress recorded", logger.RecordID(rec.ID), logger.Percentage(rec.CompletionPercentage))
		return result, nil
	}

	completionEvents, err := h.complete(ctx, rec, l, result)
	if err != nil {
		return nil, err
	}
	h.deps.publish(append(events, completionEvents...))

	h.log.Info("lesson completed",
		logger.UserID(cmd.UserID),
		logger.LessonID(cmd.LessonID),
		logger.Points(result.PointsAwarded),
		logger.Bool("level_up", result.LevelUp))
	return result, nil
}

// complete pays out the first completion and persists record and profile.
func (h *RecordProgressHandler) complete(ctx context.Context, rec *progress.Record, l *lesson.Lesson, result *RecordProgressResult) ([]shared.Event, error) {
	now := rec.UpdatedAt

	u, err := h.deps.loadOrCreateUser(ctx, rec.UserID, now)
	if err != nil {
		return nil, err
	}

	rec.StreakCount = u.StreakDays
	breakdown := reward.Calculate(rec.PointsInput(l.Points, l.Difficulty, l.Duration))
	rec.AwardPoints(breakdown.Total, now)

	change, err := u.AddPoints(breakdown.Total, now)
	if err != nil {
		return nil, err
	}

	events := []shared.Event{
		shared.NewLessonCompletedEvent(rec.UserID, rec.LessonID, l.Category, string(l.Difficulty), now),
		shared.NewAchievementUnlockedEvent(rec.UserID, rec.LessonID, reward.LessonCompleted,
			string(reward.AchievementCompletion), string(reward.ScopeRecord), now),
		shared.NewPointsAwardedEvent(rec.UserID, rec.LessonID, breakdown.Total, u.TotalPoints, now),
	}
	if change.LeveledUp {
		events = append(events, shared.NewLevelUpEvent(rec.UserID, change.OldLevel, change.NewLevel, now))
	}
	if h.deps.featureOn(config.FeatureUserAchievements, rec.UserID) {
		names, unlocked := unlockForUser(u, reward.CompletionUnlocks(breakdown, rec.Rating), rec.LessonID, now)
		result.Achievements = names
		events = append(events, unlocked...)
	}

	if err := h.deps.Records.Save(ctx, rec); err != nil {
		h.log.Error("failed to save record", logger.RecordID(rec.ID), logger.Err(err))
		return nil, err
	}
	if err := h.deps.Users.Save(ctx, u); err != nil {
		h.log.Error("failed to save user", logger.UserID(u.ID), logger.Err(err))
		return nil, err
	}

	result.PointsAwarded = breakdown.Total
	result.LevelUp = change.LeveledUp
	result.NewLevel = change.NewLevel
	return events, nil
}
