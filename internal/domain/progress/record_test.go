package progress

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

var t0 = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	r, err := NewRecord("rec-1", "user-1", "lesson-1", t0)
	require.NoError(t, err)
	return r
}

func TestNewRecord(t *testing.T) {
	r := newTestRecord(t)
	assert.Equal(t, StatusNotStarted, r.Status)
	assert.Equal(t, 1, r.Attempts)
	assert.False(t, r.IsCompleted)

	_, err := NewRecord("", "user-1", "lesson-1", t0)
	assert.True(t, shared.IsInvalidInput(err))
}

func TestRecordProgress_CompletionScenario(t *testing.T) {
	r := newTestRecord(t)

	res, err := r.RecordProgress(79, 100, 79, t0)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, StatusInProgress, r.Status)
	assert.False(t, r.IsCompleted)
	assert.Equal(t, 79, r.CompletionPercentage)
	assert.Equal(t, t0, r.StartedAt)

	doneAt := t0.Add(time.Minute)
	res, err = r.RecordProgress(80, 100, 80, doneAt)
	require.NoError(t, err)
	assert.Equal(t, ProgressResult{Completed: true, FirstTime: true}, res)
	assert.True(t, r.IsCompleted)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, doneAt, r.CompletedAt)
	assert.True(t, r.Achievements.Has(reward.LessonCompleted))
}

func TestRecordProgress_CompletesOnlyOnce(t *testing.T) {
	r := newTestRecord(t)
	doneAt := t0.Add(time.Minute)

	_, err := r.RecordProgress(90, 100, 90, doneAt)
	require.NoError(t, err)

	res, err := r.RecordProgress(100, 100, 100, doneAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, doneAt, r.CompletedAt)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Len(t, r.Achievements, 1)
}

func TestRecordProgress_WatchTimeNeverRegresses(t *testing.T) {
	r := newTestRecord(t)
	observed := []float64{10, 40, 20, 0, 55, 30, 300}
	prev := 0.0

	for i, w := range observed {
		_, err := r.RecordProgress(w, 200, w, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.WatchTime, prev)
		assert.GreaterOrEqual(t, r.CompletionPercentage, 0)
		assert.LessOrEqual(t, r.CompletionPercentage, 100)
		prev = r.WatchTime
	}
	assert.Equal(t, 300.0, r.WatchTime)
	assert.Equal(t, 100, r.CompletionPercentage)
}

func TestRecordProgress_ZeroKeepsNotStarted(t *testing.T) {
	r := newTestRecord(t)
	_, err := r.RecordProgress(0, 100, 0, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, r.Status)
	assert.True(t, r.StartedAt.IsZero())
}

func TestRecordProgress_InvalidInput(t *testing.T) {
	r := newTestRecord(t)

	_, err := r.RecordProgress(-1, 100, 0, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = r.RecordProgress(10, 0, 0, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = r.RecordProgress(10, -5, 0, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = r.RecordProgress(math.Inf(1), 100, 0, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = r.RecordProgress(10, math.Inf(1), 0, t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	assert.Zero(t, r.WatchTime)
}

func TestRecordProgress_ExtremeRatiosStayInRange(t *testing.T) {
	tests := []struct {
		name      string
		watch     float64
		total     float64
		want      int
		completed bool
	}{
		{name: "ratio overflows to infinity", watch: 1e308, total: 1e-5, want: 100, completed: true},
		{name: "huge but finite ratio", watch: 1e300, total: 1, want: 100, completed: true},
		{name: "tiny watch time", watch: 1e-9, total: 1e9, want: 0, completed: false},
		{name: "tiny duration", watch: 1, total: 1e-300, want: 100, completed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRecord(t)
			res, err := r.RecordProgress(tt.watch, tt.total, 0, t0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.CompletionPercentage)
			assert.GreaterOrEqual(t, r.CompletionPercentage, 0)
			assert.LessOrEqual(t, r.CompletionPercentage, 100)
			assert.Equal(t, tt.completed, res.Completed)
			assert.Equal(t, tt.completed, r.IsCompleted)
		})
	}
}

func TestSessions_StartAndEnd(t *testing.T) {
	r := newTestRecord(t)

	h, err := r.StartSession(12, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, h.SessionIndex)
	assert.Equal(t, StatusInProgress, r.Status)
	assert.Equal(t, t0, r.StartedAt)

	_, err = r.StartSession(15, t0.Add(time.Second))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, r.Sessions, 1)

	s, ok := r.EndSession(60, true, t0.Add(90*time.Second+900*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 90, s.Duration)
	assert.True(t, s.Completed)
	assert.Equal(t, 90, r.TimeSpent)
	assert.Equal(t, 60.0, r.LastWatch.Position)
	assert.False(t, r.Sessions.HasOpen())

	_, ok = r.EndSession(70, false, t0.Add(time.Hour))
	assert.False(t, ok)
	assert.Equal(t, 90, r.TimeSpent)
}

func TestSessions_ResumingKeepsFirstAttempt(t *testing.T) {
	r := newTestRecord(t)

	_, err := r.StartSession(0, t0)
	require.NoError(t, err)
	r.EndSession(10, false, t0.Add(time.Minute))

	h, err := r.StartSession(10, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, h.Attempts)
	assert.Equal(t, 1, h.SessionIndex)
	r.EndSession(90, true, t0.Add(2*time.Hour))

	_, err = r.RecordProgress(90, 100, 90, t0.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = r.StartSession(0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, 1, r.PointsInput(20, reward.DifficultyMedium, 100).Attempts)
}

func TestCompact_KeepsNewestAndTimeSpent(t *testing.T) {
	r := newTestRecord(t)
	at := t0
	for i := 0; i < 5; i++ {
		_, err := r.StartSession(float64(i), at)
		require.NoError(t, err)
		r.EndSession(float64(i+1), false, at.Add(10*time.Second))
		at = at.Add(time.Hour)
	}
	_, err := r.StartSession(5, at)
	require.NoError(t, err)

	dropped := r.Compact(2, at)
	assert.Equal(t, 4, dropped)
	assert.Equal(t, 4, r.ArchivedSessions)
	assert.Len(t, r.Sessions, 2)
	assert.True(t, r.Sessions.HasOpen())
	assert.Equal(t, 50, r.TimeSpent)
	assert.Equal(t, 6, r.TotalSessions())

	assert.Zero(t, r.Compact(2, at))
}

func TestCloseAbandoned(t *testing.T) {
	r := newTestRecord(t)
	_, err := r.StartSession(30, t0)
	require.NoError(t, err)

	assert.False(t, r.CloseAbandoned(6*time.Hour, 10*time.Minute, t0.Add(time.Hour)))

	assert.True(t, r.CloseAbandoned(6*time.Hour, 10*time.Minute, t0.Add(7*time.Hour)))
	assert.False(t, r.Sessions.HasOpen())
	assert.Equal(t, 600, r.TimeSpent)
	assert.False(t, r.Sessions[0].Completed)
	assert.Equal(t, 30.0, r.Sessions[0].EndPosition)
}

func TestFeedbackFields(t *testing.T) {
	r := newTestRecord(t)

	assert.ErrorIs(t, r.Rate(0, t0), shared.ErrInvalidInput)
	assert.ErrorIs(t, r.Rate(6, t0), shared.ErrInvalidInput)
	require.NoError(t, r.Rate(4, t0))
	assert.Equal(t, 4, r.Rating)

	r.SetBookmark(true, t0)
	assert.True(t, r.Bookmarked)
	assert.Equal(t, t0, r.BookmarkedAt)
	r.SetBookmark(false, t0.Add(time.Minute))
	assert.True(t, r.BookmarkedAt.IsZero())

	err := r.UpdateEngagement(reward.Engagement{AttentionLevel: 0, EnjoymentLevel: 3, ConfidenceLevel: 3}, "", t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	long := make([]rune, MaxNotesLength+1)
	for i := range long {
		long[i] = 'a'
	}
	err = r.UpdateEngagement(reward.Engagement{AttentionLevel: 3, EnjoymentLevel: 3, ConfidenceLevel: 3}, string(long), t0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	e := reward.Engagement{AttentionLevel: 4, EnjoymentLevel: 5, ConfidenceLevel: 2}
	require.NoError(t, r.UpdateEngagement(e, "loved the song", t0))
	assert.Equal(t, e, r.Engagement)
	assert.Equal(t, "loved the song", r.Notes)
}

func TestCompletedRecordStaysWritable(t *testing.T) {
	r := newTestRecord(t)
	_, err := r.RecordProgress(100, 100, 100, t0)
	require.NoError(t, err)

	require.NoError(t, r.Rate(5, t0.Add(time.Minute)))
	r.SetBookmark(true, t0.Add(time.Minute))
	assert.True(t, r.IsCompleted)
	assert.Equal(t, t0, r.CompletedAt)
}

func TestPointsInputFromRecord(t *testing.T) {
	r := newTestRecord(t)
	_, err := r.StartSession(0, t0)
	require.NoError(t, err)
	r.EndSession(50, true, t0.Add(50*time.Second))
	require.NoError(t, r.UpdateEngagement(reward.Engagement{AttentionLevel: 5, EnjoymentLevel: 5, ConfidenceLevel: 5}, "", t0))
	require.NoError(t, r.Rate(5, t0))
	r.StreakCount = 7
	_, err = r.RecordProgress(60, 60, 60, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 31, reward.CalculatePoints(r.PointsInput(10, reward.DifficultyMedium, 60)))
}

func TestClone_IsDeep(t *testing.T) {
	r := newTestRecord(t)
	_, err := r.StartSession(0, t0)
	require.NoError(t, err)

	c := r.Clone()
	c.EndSession(10, false, t0.Add(time.Minute))
	assert.True(t, r.Sessions.HasOpen())
	assert.False(t, c.Sessions.HasOpen())
}
