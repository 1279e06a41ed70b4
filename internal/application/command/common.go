// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FeatureChecker reports whether a named feature is on for a user.
type FeatureChecker interface {
	IsEnabled(feature, userID string) bool
}

// Deps bundles the collaborators every progress command needs.
type Deps struct {
	Records   progress.Repository
	Lessons   lesson.Repository
	Users     user.Repository
	Publisher shared.EventPublisher
	Clock     timeutil.Clock
	Features  FeatureChecker
	Logger    *logger.Logger

	// SessionRetention caps the detailed session list (default 50).
	SessionRetention int
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = shared.NoopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.SessionRetention <= 0 {
		d.SessionRetention = progress.DefaultSessionRetention
	}
	return d
}

func (d Deps) featureOn(name, userID string) bool {
	if d.Features == nil {
		return true
	}
	return d.Features.IsEnabled(name, userID)
}

// publish sends events in order. Bus failures never fail a command.
func (d Deps) publish(events []shared.Event) {
	for _, e := range events {
		if err := d.Publisher.Publish(e); err != nil {
			d.Logger.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err))
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Loading
// ─────────────────────────────────────────────────────────────────────────────

// activeLesson returns the lesson, ErrLessonNotFound or ErrLessonInactive.
func (d Deps) activeLesson(ctx context.Context, lessonID string) (*lesson.Lesson, error) {
	l, err := d.Lessons.Get(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, shared.ErrLessonInactive
	}
	return l, nil
}

// loadOrCreateUser returns the profile, creating a learner profile on first use.
func (d Deps) loadOrCreateUser(ctx context.Context, userID string, now time.Time) (*user.User, error) {
	u, err := d.Users.Get(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}

	u, err = user.New(userID, user.RoleLearner, now)
	if err != nil {
		return nil, err
	}
	if err := d.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// loadOrCreateRecord returns the record of the pair, creating an empty one.
// A concurrent create is resolved by reloading the winner.
func (d Deps) loadOrCreateRecord(ctx context.Context, userID, lessonID string, now time.Time) (*progress.Record, error) {
	rec, err := d.Records.Get(ctx, userID, lessonID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, shared.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := d.loadOrCreateUser(ctx, userID, now); err != nil {
		return nil, err
	}

	rec, err = progress.NewRecord(uuid.NewString(), userID, lessonID, now)
	if err != nil {
		return nil, err
	}
	if err := d.Records.Create(ctx, rec); err != nil {
		if shared.IsConflict(err) {
			return d.Records.Get(ctx, userID, lessonID)
		}
		return nil, err
	}
	return rec, nil
}

// compactIfNeeded applies session retention before a save.
func (d Deps) compactIfNeeded(rec *progress.Record, now time.Time) int {
	if len(rec.Sessions) <= d.SessionRetention {
		return 0
	}
	return rec.Compact(d.SessionRetention, now)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rewards
// ─────────────────────────────────────────────────────────────────────────────

// unlockForUser applies unlocks to the profile and returns the names and
// events of the ones that were new.
func unlockForUser(u *user.User, unlocks []reward.Unlock, lessonID string, now time.Time) ([]string, []shared.Event) {
	var (
		names  []string
		events []shared.Event
	)
	for _, un := range unlocks {
		if u.UnlockAchievement(un.Name, un.Type, now) {
			names = append(names, un.Name)
			events = append(events, shared.NewAchievementUnlockedEvent(
				u.ID, lessonID, un.Name, string(un.Type), string(reward.ScopeUser), now))
		}
	}
	return names, events
}

func requireIDs(op, userID, lessonID string) error {
	if userID == "" {
		return shared.Invalid("progress", op, "user id is required")
	}
	if lessonID == "" {
		return shared.Invalid("progress", op, "lesson id is required")
	}
	return nil
}
