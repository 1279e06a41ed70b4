package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordActivity(t *testing.T) {
	tests := []struct {
		name       string
		streak     int
		elapsed    time.Duration
		wantStreak int
		wantChange StreakChange
	}{
		{"same day", 4, 3 * time.Hour, 4, StreakUnchanged},
		{"same day without a streak", 0, 2 * time.Hour, 0, StreakUnchanged},
		{"just under a day", 4, 23*time.Hour + 59*time.Minute, 4, StreakUnchanged},
		{"one day", 4, 24 * time.Hour, 5, StreakExtended},
		{"almost two days", 4, 47 * time.Hour, 5, StreakExtended},
		{"two days", 4, 48 * time.Hour, 1, StreakReset},
		{"three days", 9, 72 * time.Hour, 1, StreakReset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUser(t)
			u.StreakDays = tt.streak
			u.LastActiveDate = t0

			now := t0.Add(tt.elapsed)
			res := u.RecordActivity(now)

			assert.Equal(t, tt.wantStreak, u.StreakDays)
			assert.Equal(t, tt.wantChange, res.Change)
			assert.Equal(t, tt.streak, res.Previous)
			assert.Equal(t, now, u.LastActiveDate)
		})
	}
}

func TestRecordActivity_FirstEver(t *testing.T) {
	u := newTestUser(t)
	res := u.RecordActivity(t0)
	assert.Equal(t, StreakStarted, res.Change)
	assert.Equal(t, 1, u.StreakDays)
}

func TestRecordActivity_ElapsedNotCalendar(t *testing.T) {
	u := newTestUser(t)
	u.StreakDays = 2
	u.LastActiveDate = time.Date(2025, 5, 10, 23, 0, 0, 0, time.UTC)

	// Next calendar day but fewer than 24 hours later.
	u.RecordActivity(time.Date(2025, 5, 11, 7, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, u.StreakDays)
}

func TestDaysBetween_IsSymmetric(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(t0, t0.Add(80*time.Hour)))
	assert.Equal(t, 3, DaysBetween(t0.Add(80*time.Hour), t0))
}
