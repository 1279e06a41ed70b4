package user

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange описывает, что произошло с серией.
type StreakChange string

const (
	StreakStarted   StreakChange = "started"
	StreakExtended  StreakChange = "extended"
	StreakUnchanged StreakChange = "unchanged"
	StreakReset     StreakChange = "reset"
)

// StreakResult - результат RecordActivity.
type StreakResult struct {
	Change   StreakChange
	Previous int
	Current  int
}

// DaysBetween возвращает число целых прошедших суток между моментами,
// floor(|b - a| / 24h). Границы календарных дней не учитываются.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// RecordActivity обновляет серию по событию активности (вход в систему).
// Разница ровно в одни сутки продлевает серию, больше - сбрасывает на 1,
// меньше суток - серия не меняется. LastActiveDate всегда становится now.
func (u *User) RecordActivity(now time.Time) StreakResult {
	res := StreakResult{Previous: u.StreakDays}

	switch {
	case u.LastActiveDate.IsZero():
		u.StreakDays = 1
		res.Change = StreakStarted
	default:
		switch diff := DaysBetween(u.LastActiveDate, now); {
		case diff == 1:
			u.StreakDays++
			res.Change = StreakExtended
		case diff > 1:
			u.StreakDays = 1
			res.Change = StreakReset
		default:
			res.Change = StreakUnchanged
		}
	}

	u.LastActiveDate = now
	u.UpdatedAt = now
	res.Current = u.StreakDays
	return res
}
