package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAchievements_AddIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var set Achievements

	assert.True(t, set.Add(LessonCompleted, AchievementCompletion, now))
	assert.False(t, set.Add(LessonCompleted, AchievementCompletion, now.Add(time.Hour)))
	assert.False(t, set.Add(LessonCompleted, AchievementSpeed, now))

	assert.Len(t, set, 1)
	assert.Equal(t, now, set[0].UnlockedAt)
	assert.Equal(t, AchievementCompletion, set[0].Type)
}

func TestAchievements_ScopesAreIndependent(t *testing.T) {
	now := time.Now()
	var record, profile Achievements

	assert.True(t, record.Add(FirstLesson, AchievementCompletion, now))
	assert.True(t, profile.Add(FirstLesson, AchievementCompletion, now))
	assert.True(t, profile.Add(WeekWarrior, AchievementStreak, now))

	assert.Equal(t, []string{FirstLesson}, record.Names())
	assert.Equal(t, []string{FirstLesson, WeekWarrior}, profile.Names())
}

func TestAchievements_Clone(t *testing.T) {
	var set Achievements
	set.Add(SuperStar, AchievementUnderstanding, time.Now())

	clone := set.Clone()
	clone.Add(HappyLearner, AchievementEngagement, time.Now())

	assert.Len(t, set, 1)
	assert.Len(t, clone, 2)
	assert.Nil(t, Achievements(nil).Clone())
}

func TestStreakUnlocks(t *testing.T) {
	assert.Empty(t, StreakUnlocks(6))
	assert.Equal(t, []Unlock{{Name: WeekWarrior, Type: AchievementStreak}}, StreakUnlocks(7))
	assert.Len(t, StreakUnlocks(30), 2)
}

func TestCompletionUnlocks(t *testing.T) {
	names := func(us []Unlock) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.Name
		}
		return out
	}

	assert.Equal(t, []string{FirstLesson}, names(CompletionUnlocks(PointsBreakdown{}, 4)))
	assert.Equal(t,
		[]string{FirstLesson, SpeedyLearner, SuperStar, HappyLearner},
		names(CompletionUnlocks(PointsBreakdown{SpeedBonus: true, EngagementBonus: true}, 5)))
}
