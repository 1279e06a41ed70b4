package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *DB
	progress *ProgressRepository
	lessons  *LessonRepository
	users    *UserRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		progress: NewProgressRepository(db),
		lessons:  NewLessonRepository(db),
		users:    NewUserRepository(db),
	}

	require.NoError(t, f.lessons.Upsert(ctx, &lesson.Lesson{
		ID: "l1", Title: "Colors", Category: "Art", Difficulty: reward.DifficultyMedium,
		Duration: 600, Points: 20, IsActive: true,
	}))
	require.NoError(t, f.lessons.Upsert(ctx, &lesson.Lesson{
		ID: "l2", Category: "Math", Difficulty: reward.DifficultyEasy, Points: 10, IsActive: false,
	}))

	u, err := user.New("u1", user.RoleLearner, t0)
	require.NoError(t, err)
	require.NoError(t, f.users.Save(ctx, u))
	return f
}

func TestProgressRepository_RoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := progress.NewRecord("r1", "u1", "l1", t0)
	require.NoError(t, err)
	require.NoError(t, f.progress.Create(ctx, rec))

	_, err = rec.StartSession(0, t0)
	require.NoError(t, err)
	rec.EndSession(300, false, t0.Add(5*time.Minute))
	_, err = rec.RecordProgress(500, 600, 500, t0.Add(9*time.Minute))
	require.NoError(t, err)
	require.NoError(t, rec.Rate(5, t0.Add(10*time.Minute)))
	rec.SetBookmark(true, t0.Add(10*time.Minute))
	rec.AwardPoints(31, t0.Add(10*time.Minute))
	require.NoError(t, f.progress.Save(ctx, rec))

	got, err := f.progress.Get(ctx, "u1", "l1")
	require.NoError(t, err)

	assert.Equal(t, progress.StatusCompleted, got.Status)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 83, got.CompletionPercentage)
	assert.True(t, got.CompletedAt.Equal(t0.Add(9*time.Minute)))
	assert.True(t, got.StartedAt.Equal(t0))
	assert.Equal(t, 300, got.TimeSpent)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, 31, got.PointsEarned)
	assert.True(t, got.Bookmarked)
	require.Len(t, got.Sessions, 1)
	assert.False(t, got.Sessions[0].IsOpen())
	assert.Equal(t, 300, got.Sessions[0].Duration)
	assert.True(t, got.Achievements.Has(reward.LessonCompleted))
	assert.True(t, got.CreatedAt.Equal(t0))
}

func TestProgressRepository_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.progress.Get(ctx, "u1", "l1")
	assert.ErrorIs(t, err, shared.ErrRecordNotFound)
	assert.True(t, shared.IsNotFound(err))

	rec, _ := progress.NewRecord("r1", "u1", "l1", t0)
	require.NoError(t, f.progress.Create(ctx, rec))

	dup, _ := progress.NewRecord("r2", "u1", "l1", t0)
	err = f.progress.Create(ctx, dup)
	assert.True(t, shared.IsConflict(err))

	missing, _ := progress.NewRecord("r3", "u1", "l2", t0)
	assert.ErrorIs(t, f.progress.Save(ctx, missing), shared.ErrRecordNotFound)
}

func TestProgressRepository_Unrated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, _ := progress.NewRecord("r1", "u1", "l1", t0)
	require.NoError(t, f.progress.Create(ctx, rec))

	got, err := f.progress.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.Zero(t, got.Rating)
	assert.True(t, got.CompletedAt.IsZero())
	assert.Nil(t, got.Sessions)
	assert.Nil(t, got.Achievements)
	assert.Equal(t, 1, got.Attempts)
}

func TestProgressRepository_Listings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r1, _ := progress.NewRecord("r1", "u1", "l1", t0)
	r2, _ := progress.NewRecord("r2", "u1", "l2", t0.Add(time.Minute))
	require.NoError(t, f.progress.Create(ctx, r1))
	require.NoError(t, f.progress.Create(ctx, r2))

	r1.SetBookmark(true, t0.Add(time.Hour))
	r2.SetBookmark(true, t0.Add(2*time.Hour))
	_, err := r2.StartSession(0, t0)
	require.NoError(t, err)
	require.NoError(t, f.progress.Save(ctx, r1))
	require.NoError(t, f.progress.Save(ctx, r2))

	all, err := f.progress.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r1", all[0].ID)

	marks, err := f.progress.ListBookmarked(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "r2", marks[0].ID)

	abandoned, err := f.progress.ListAbandoned(ctx, t0.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
	assert.Equal(t, "r2", abandoned[0].ID)

	none, err := f.progress.ListAbandoned(ctx, t0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	big, err := f.progress.ListOversized(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, "r2", big[0].ID)
}

func TestLessonRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	l, err := f.lessons.Get(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Art", l.Category)
	assert.Equal(t, reward.DifficultyMedium, l.Difficulty)
	assert.True(t, l.HasDuration())

	_, err = f.lessons.Get(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)

	many, err := f.lessons.GetMany(ctx, []string{"l1", "l2", "nope"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	n, err := f.lessons.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Level)
	assert.True(t, u.LastActiveDate.IsZero())

	_, err = u.AddPoints(250, t0)
	require.NoError(t, err)
	u.RecordActivity(t0)
	u.UnlockAchievement(reward.FirstLesson, reward.AchievementCompletion, t0)
	require.NoError(t, f.users.Save(ctx, u))

	got, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 250, got.TotalPoints)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 1, got.StreakDays)
	assert.True(t, got.LastActiveDate.Equal(t0))
	assert.True(t, got.Achievements.Has(reward.FirstLesson))

	_, err = f.users.Get(ctx, "ghost")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}
