package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
)

func TestSessionsKeepOpenAndClosed(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	end := start.Add(time.Minute)
	in := progress.Sessions{
		{StartTime: start, EndTime: &end, Duration: 60, StartPosition: 0, EndPosition: 60, Completed: true},
		{StartTime: end, StartPosition: 60},
	}

	data, err := EncodeSessions(in)
	require.NoError(t, err)

	out, err := DecodeSessions(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.False(t, out[0].IsOpen())
	assert.True(t, out[1].IsOpen())
	assert.True(t, out[0].EndTime.Equal(end))
}

func TestEmptyColumns(t *testing.T) {
	data, err := EncodeSessions(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	s, err := DecodeSessions(data)
	require.NoError(t, err)
	assert.Nil(t, s)

	a, err := DecodeAchievements(nil)
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = DecodeAchievements([]byte("{broken"))
	assert.Error(t, err)
}

func TestAchievementsColumn(t *testing.T) {
	var set reward.Achievements
	set.Add(reward.LessonCompleted, reward.AchievementCompletion, time.Unix(100, 0).UTC())

	data, err := EncodeAchievements(set)
	require.NoError(t, err)
	out, err := DecodeAchievements(data)
	require.NoError(t, err)
	assert.True(t, out.Has(reward.LessonCompleted))
}

func TestNullables(t *testing.T) {
	assert.Nil(t, NullTime(time.Time{}))
	assert.True(t, FromNullTime(nil).IsZero())
	assert.Nil(t, NullInt(0))
	assert.Equal(t, 4, FromNullInt(NullInt(4)))
}
