package command

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/sqlite"
	"github.com/kidlearn/learning-hub/pkg/timeutil"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	deps  Deps
	clock *timeutil.FixedClock
	bus   *recordingPublisher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	lessons := sqlite.NewLessonRepository(db)
	for _, l := range []*lesson.Lesson{
		{ID: "l1", Title: "Colors", Category: "Art", Difficulty: reward.DifficultyMedium, Duration: 600, Points: 20, IsActive: true},
		{ID: "l2", Title: "Numbers", Category: "Math", Difficulty: reward.DifficultyEasy, Duration: 300, Points: 10, IsActive: false},
		{ID: "l3", Title: "Planets", Category: "Science", Difficulty: reward.DifficultyHard, Points: 100, IsActive: true},
	} {
		require.NoError(t, lessons.Upsert(ctx, l))
	}

	f := &fixture{
		clock: timeutil.NewFixedClock(t0),
		bus:   &recordingPublisher{},
	}
	f.deps = Deps{
		Records:   sqlite.NewProgressRepository(db),
		Lessons:   lessons,
		Users:     sqlite.NewUserRepository(db),
		Publisher: f.bus,
		Clock:     f.clock,
	}
	return f
}

func (f *fixture) watch(t *testing.T, userID, lessonID string, d time.Duration) {
	t.Helper()
	ctx := context.Background()

	_, err := NewStartSessionHandler(f.deps).Handle(ctx, StartSessionCommand{UserID: userID, LessonID: lessonID})
	require.NoError(t, err)
	f.clock.Advance(d)
	res, err := NewEndSessionHandler(f.deps).Handle(ctx, EndSessionCommand{
		UserID: userID, LessonID: lessonID, EndPosition: d.Seconds(),
	})
	require.NoError(t, err)
	require.True(t, res.Closed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

func TestStartSession_CreatesRecordAndProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	handle, err := NewStartSessionHandler(f.deps).Handle(ctx, StartSessionCommand{
		UserID: "u1", LessonID: "l1", StartPosition: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, handle.SessionIndex)
	assert.Equal(t, 1, handle.Attempts)
	assert.Equal(t, t0, handle.StartTime)

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusInProgress, rec.Status)
	assert.True(t, rec.Sessions.HasOpen())

	u, err := f.deps.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleLearner, u.Role)

	assert.Equal(t, []shared.EventType{shared.EventSessionStarted}, f.bus.types())
}

func TestStartSession_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewStartSessionHandler(f.deps)

	_, err := h.Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "missing"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l2"})
	assert.ErrorIs(t, err, shared.ErrLessonInactive)
	assert.True(t, shared.IsInvalidState(err))

	_, err = h.Handle(ctx, StartSessionCommand{UserID: "", LessonID: "l1"})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = h.Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l1", StartPosition: -1})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = h.Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l1"})
	require.NoError(t, err)
	_, err = h.Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l1"})
	assert.ErrorIs(t, err, shared.ErrSessionAlreadyOpen)
	assert.True(t, shared.IsInvalidState(err))
}

func TestEndSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewEndSessionHandler(f.deps)

	_, err := h.Handle(ctx, EndSessionCommand{UserID: "u1", LessonID: "l1"})
	assert.True(t, shared.IsNotFound(err))

	f.watch(t, "u1", "l1", 90*time.Second)

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 90, rec.TimeSpent)
	assert.False(t, rec.Sessions.HasOpen())
	assert.Equal(t, 90.0, rec.LastWatch.Position)

	f.bus.reset()
	res, err := h.Handle(ctx, EndSessionCommand{UserID: "u1", LessonID: "l1", EndPosition: 10})
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.Equal(t, 90, res.TimeSpent)
	assert.Empty(t, f.bus.types())
}

func TestStartSession_ResumeKeepsFirstAttemptBonus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.watch(t, "u1", "l1", time.Minute)
	handle, err := NewStartSessionHandler(f.deps).Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, 1, handle.Attempts)
	assert.Equal(t, 1, handle.SessionIndex)

	f.clock.Advance(time.Minute)
	_, err = NewEndSessionHandler(f.deps).Handle(ctx, EndSessionCommand{UserID: "u1", LessonID: "l1", EndPosition: 120})
	require.NoError(t, err)

	res, err := NewRecordProgressHandler(f.deps).Handle(ctx, RecordProgressCommand{
		UserID: "u1", LessonID: "l1", WatchTime: 480, TotalDuration: 600, CurrentPosition: 480,
	})
	require.NoError(t, err)
	require.True(t, res.Completed)

	// 20*1.2 + first attempt 5 + speed 3
	assert.Equal(t, 32, res.PointsAwarded)
}

func TestStartSession_InlineCompaction(t *testing.T) {
	f := setup(t)
	f.deps.SessionRetention = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.watch(t, "u1", "l1", 10*time.Second)
	}

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rec.Sessions), 3)
	assert.Equal(t, 5, rec.TotalSessions())
	assert.Equal(t, 50, rec.TimeSpent)
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress and completion
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordProgress_CompletesAtThreshold(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.watch(t, "u1", "l1", 300*time.Second)
	_, err := NewRateLessonHandler(f.deps).Handle(ctx, RateLessonCommand{UserID: "u1", LessonID: "l1", Rating: 5})
	require.NoError(t, err)
	f.bus.reset()

	h := NewRecordProgressHandler(f.deps)

	res, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 474, TotalDuration: 600, CurrentPosition: 474})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 79, res.CompletionPercentage)
	assert.Zero(t, res.PointsAwarded)

	res, err = h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 480, TotalDuration: 600, CurrentPosition: 480})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.FirstTime)
	assert.Equal(t, 80, res.CompletionPercentage)

	// 20*1.2 + first attempt 5 + speed 3 + top rating 10
	assert.Equal(t, 42, res.PointsAwarded)
	assert.False(t, res.LevelUp)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, []string{reward.FirstLesson, reward.SpeedyLearner, reward.SuperStar}, res.Achievements)

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted)
	assert.Equal(t, t0.Add(300*time.Second), rec.CompletedAt)
	assert.Equal(t, 42, rec.PointsEarned)
	assert.True(t, rec.Achievements.Has(reward.LessonCompleted))

	u, err := f.deps.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, u.TotalPoints)
	assert.True(t, u.Achievements.Has(reward.FirstLesson))

	assert.Equal(t, []shared.EventType{
		shared.EventProgressRecorded,
		shared.EventProgressRecorded,
		shared.EventLessonCompleted,
		shared.EventAchievementUnlocked,
		shared.EventPointsAwarded,
		shared.EventAchievementUnlocked,
		shared.EventAchievementUnlocked,
		shared.EventAchievementUnlocked,
	}, f.bus.types())
}

func TestRecordProgress_PaysOnlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewRecordProgressHandler(f.deps)

	first, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 500, TotalDuration: 600})
	require.NoError(t, err)
	require.True(t, first.FirstTime)

	f.clock.Advance(time.Hour)
	again, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 600, TotalDuration: 600})
	require.NoError(t, err)
	assert.False(t, again.FirstTime)
	assert.Zero(t, again.PointsAwarded)
	assert.Equal(t, 100, again.CompletionPercentage)

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, t0, rec.CompletedAt)

	u, err := f.deps.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.PointsAwarded, u.TotalPoints)
}

func TestRecordProgress_WatchTimeNeverDecreases(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewRecordProgressHandler(f.deps)

	_, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 300, TotalDuration: 600})
	require.NoError(t, err)
	res, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 60, TotalDuration: 600})
	require.NoError(t, err)

	assert.Equal(t, 300.0, res.WatchTime)
	assert.Equal(t, 50, res.CompletionPercentage)
}

func TestRecordProgress_LevelUp(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := NewRecordProgressHandler(f.deps).Handle(ctx, RecordProgressCommand{
		UserID: "u1", LessonID: "l3", WatchTime: 100, TotalDuration: 100,
	})
	require.NoError(t, err)

	// 100*1.5 + first attempt 25, no speed bonus without a known duration
	assert.Equal(t, 175, res.PointsAwarded)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 2, res.NewLevel)
	assert.Contains(t, f.bus.types(), shared.EventLevelUp)
}

func TestRecordProgress_UserAchievementsFlagOff(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	flags := config.NewFeatureFlags()
	require.NoError(t, flags.DisableFeature(config.FeatureUserAchievements))
	f.deps.Features = flags

	res, err := NewRecordProgressHandler(f.deps).Handle(ctx, RecordProgressCommand{
		UserID: "u1", LessonID: "l1", WatchTime: 600, TotalDuration: 600,
	})
	require.NoError(t, err)
	assert.True(t, res.FirstTime)
	assert.Empty(t, res.Achievements)

	u, err := f.deps.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.Achievements)
	assert.Equal(t, res.PointsAwarded, u.TotalPoints)
}

func TestRecordProgress_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewRecordProgressHandler(f.deps)

	_, err := h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: -1, TotalDuration: 600})
	assert.ErrorIs(t, err, shared.ErrNegativeWatchTime)

	_, err = h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 1, TotalDuration: 0})
	assert.ErrorIs(t, err, shared.ErrNonPositiveDuration)

	_, err = h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: math.Inf(1), TotalDuration: 600})
	assert.ErrorIs(t, err, shared.ErrNegativeWatchTime)

	_, err = h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l1", WatchTime: 1, TotalDuration: math.Inf(1)})
	assert.ErrorIs(t, err, shared.ErrNonPositiveDuration)

	_, err = h.Handle(ctx, RecordProgressCommand{UserID: "u1", LessonID: "l2", WatchTime: 1, TotalDuration: 10})
	assert.True(t, shared.IsInvalidState(err))

	_, err = f.deps.Records.Get(ctx, "u1", "l1")
	assert.True(t, shared.IsNotFound(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Feedback
// ─────────────────────────────────────────────────────────────────────────────

func TestRateLesson(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewRateLessonHandler(f.deps)

	_, err := h.Handle(ctx, RateLessonCommand{UserID: "u1", LessonID: "l1", Rating: 4})
	assert.True(t, shared.IsNotFound(err))

	f.watch(t, "u1", "l1", time.Minute)

	_, err = h.Handle(ctx, RateLessonCommand{UserID: "u1", LessonID: "l1", Rating: 6})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)

	rec, err := h.Handle(ctx, RateLessonCommand{UserID: "u1", LessonID: "l1", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Rating)

	stored, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Rating)
}

func TestBookmarkLesson_CreatesRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewBookmarkLessonHandler(f.deps)

	rec, err := h.Handle(ctx, BookmarkLessonCommand{UserID: "u1", LessonID: "l1", Flag: true})
	require.NoError(t, err)
	assert.True(t, rec.Bookmarked)
	assert.Equal(t, t0, rec.BookmarkedAt)
	assert.Equal(t, progress.StatusNotStarted, rec.Status)

	f.clock.Advance(time.Minute)
	rec, err = h.Handle(ctx, BookmarkLessonCommand{UserID: "u1", LessonID: "l1", Flag: false})
	require.NoError(t, err)
	assert.False(t, rec.Bookmarked)
	assert.True(t, rec.BookmarkedAt.IsZero())

	_, err = h.Handle(ctx, BookmarkLessonCommand{UserID: "u1", LessonID: "nope", Flag: true})
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateEngagement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewUpdateEngagementHandler(f.deps)
	good := reward.Engagement{AttentionLevel: 4, EnjoymentLevel: 5, ConfidenceLevel: 3}

	_, err := h.Handle(ctx, UpdateEngagementCommand{UserID: "u1", LessonID: "l1", Engagement: good})
	assert.True(t, shared.IsNotFound(err))

	f.watch(t, "u1", "l1", time.Minute)

	_, err = h.Handle(ctx, UpdateEngagementCommand{UserID: "u1", LessonID: "l1",
		Engagement: reward.Engagement{AttentionLevel: 0, EnjoymentLevel: 5, ConfidenceLevel: 3}})
	assert.ErrorIs(t, err, shared.ErrInvalidEngagement)

	long := make([]rune, progress.MaxNotesLength+1)
	for i := range long {
		long[i] = 'я'
	}
	_, err = h.Handle(ctx, UpdateEngagementCommand{UserID: "u1", LessonID: "l1", Engagement: good, Notes: string(long)})
	assert.ErrorIs(t, err, shared.ErrNotesTooLong)

	rec, err := h.Handle(ctx, UpdateEngagementCommand{UserID: "u1", LessonID: "l1", Engagement: good, Notes: "loved it"})
	require.NoError(t, err)
	assert.Equal(t, good, rec.Engagement)

	res, err := NewRecordProgressHandler(f.deps).Handle(ctx, RecordProgressCommand{
		UserID: "u1", LessonID: "l1", WatchTime: 600, TotalDuration: 600,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Achievements, reward.HappyLearner)
}

// ─────────────────────────────────────────────────────────────────────────────
// Streak
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordActivity_StreakAndMilestones(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	h := NewRecordActivityHandler(f.deps)

	res, err := h.Handle(ctx, RecordActivityCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, user.StreakStarted, res.Change)
	assert.Equal(t, 1, res.StreakDays)

	f.clock.Advance(2 * time.Hour)
	res, err = h.Handle(ctx, RecordActivityCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, user.StreakUnchanged, res.Change)
	assert.Equal(t, 1, res.StreakDays)

	for day := 2; day <= 7; day++ {
		f.clock.Advance(24 * time.Hour)
		res, err = h.Handle(ctx, RecordActivityCommand{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, day, res.StreakDays)
	}
	assert.Equal(t, []string{reward.WeekWarrior}, res.Achievements)

	f.bus.reset()
	f.clock.Advance(72 * time.Hour)
	res, err = h.Handle(ctx, RecordActivityCommand{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, user.StreakReset, res.Change)
	assert.Equal(t, 7, res.Previous)
	assert.Equal(t, 1, res.StreakDays)
	assert.Equal(t, []shared.EventType{shared.EventStreakBroken, shared.EventStreakUpdated}, f.bus.types())

	u, err := f.deps.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.StreakDays)
	assert.True(t, u.Achievements.Has(reward.WeekWarrior))
}

func TestRecordActivity_StreakFeedsStreakBonus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	activity := NewRecordActivityHandler(f.deps)

	for day := 1; day <= 7; day++ {
		_, err := activity.Handle(ctx, RecordActivityCommand{UserID: "u1"})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	res, err := NewRecordProgressHandler(f.deps).Handle(ctx, RecordProgressCommand{
		UserID: "u1", LessonID: "l3", WatchTime: 100, TotalDuration: 100,
	})
	require.NoError(t, err)
	// 150 + first attempt 25 + streak 10
	assert.Equal(t, 185, res.PointsAwarded)

	rec, err := f.deps.Records.Get(ctx, "u1", "l3")
	require.NoError(t, err)
	assert.Equal(t, 7, rec.StreakCount)
}

// ─────────────────────────────────────────────────────────────────────────────
// Maintenance
// ─────────────────────────────────────────────────────────────────────────────

func TestCompactSessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.watch(t, "u1", "l1", 20*time.Second)
	}

	deps := f.deps
	deps.SessionRetention = 2
	res, err := NewCompactSessionsHandler(deps).Handle(ctx, CompactSessionsCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 3, res.Affected)

	rec, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Len(t, rec.Sessions, 2)
	assert.Equal(t, 3, rec.ArchivedSessions)
	assert.Equal(t, 100, rec.TimeSpent)

	res, err = NewCompactSessionsHandler(deps).Handle(ctx, CompactSessionsCommand{})
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
}

func TestCloseAbandonedSessions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := NewStartSessionHandler(f.deps).Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l1"})
	require.NoError(t, err)
	_, err = NewStartSessionHandler(f.deps).Handle(ctx, StartSessionCommand{UserID: "u1", LessonID: "l3"})
	require.NoError(t, err)

	h := NewCloseAbandonedSessionsHandler(f.deps)

	f.clock.Advance(time.Hour)
	res, err := h.Handle(ctx, CloseAbandonedSessionsCommand{MaxAge: 6 * time.Hour})
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	f.clock.Advance(6 * time.Hour)
	res, err = h.Handle(ctx, CloseAbandonedSessionsCommand{MaxAge: 6 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	withDuration, err := f.deps.Records.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, withDuration.Sessions.HasOpen())
	assert.Equal(t, 600, withDuration.TimeSpent)
	assert.False(t, withDuration.Sessions[0].Completed)

	unknownDuration, err := f.deps.Records.Get(ctx, "u1", "l3")
	require.NoError(t, err)
	assert.Equal(t, 3600, unknownDuration.TimeSpent)
}
