// Package codec converts aggregate parts that are stored as JSON columns
// and nullable timestamps. Both SQL stores share it so the on-disk shape
// of a record is the same in Postgres and SQLite.
package codec

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
)

// EncodeSessions marshals the detailed watch sessions.
func EncodeSessions(s progress.Sessions) ([]byte, error) {
	if s == nil {
		s = progress.Sessions{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}
	return data, nil
}

// DecodeSessions unmarshals watch sessions. Empty input yields no sessions.
func DecodeSessions(data []byte) (progress.Sessions, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s progress.Sessions
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	if len(s) == 0 {
		return nil, nil
	}
	return s, nil
}

// EncodeAchievements marshals an achievement set.
func EncodeAchievements(a reward.Achievements) ([]byte, error) {
	if a == nil {
		a = reward.Achievements{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode achievements: %w", err)
	}
	return data, nil
}

// DecodeAchievements unmarshals an achievement set.
func DecodeAchievements(data []byte) (reward.Achievements, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var a reward.Achievements
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode achievements: %w", err)
	}
	if len(a) == 0 {
		return nil, nil
	}
	return a, nil
}

// NullTime maps the zero time to nil.
func NullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// FromNullTime maps nil to the zero time.
func FromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// NullInt maps 0 to nil, used for optional rating.
func NullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// FromNullInt maps nil to 0.
func FromNullInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
