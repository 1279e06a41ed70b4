// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ MODELS
// Плоские DTO для транспорта. Доменные агрегаты наружу не отдаются.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressView - представление записи прогресса.
type ProgressView struct {
	ID                   string                  `json:"id"`
	UserID               string                  `json:"userId"`
	LessonID             string                  `json:"lessonId"`
	Status               string                  `json:"status"`
	WatchTime            float64                 `json:"watchTime"`
	CompletionPercentage int                     `json:"completionPercentage"`
	IsCompleted          bool                    `json:"isCompleted"`
	StartedAt            *time.Time              `json:"startedAt,omitempty"`
	CompletedAt          *time.Time              `json:"completedAt,omitempty"`
	LastWatch            progress.LastWatch      `json:"lastWatch"`
	Sessions             []progress.WatchSession `json:"watchSessions"`
	ArchivedSessions     int                     `json:"archivedSessions"`
	TimeSpent            int                     `json:"timeSpent"`
	Rating               int                     `json:"rating,omitempty"`
	PointsEarned         int                     `json:"pointsEarned"`
	Attempts             int                     `json:"attempts"`
	StreakCount          int                     `json:"streakCount"`
	Bookmarked           bool                    `json:"bookmarked"`
	BookmarkedAt         *time.Time              `json:"bookmarkedAt,omitempty"`
	Achievements         []reward.Achievement    `json:"achievements"`
	Engagement           reward.Engagement       `json:"engagement"`
	Notes                string                  `json:"notes,omitempty"`
	UpdatedAt            time.Time               `json:"updatedAt"`
}

// NewProgressView строит представление записи.
func NewProgressView(r *progress.Record) ProgressView {
	sessions := []progress.WatchSession(r.Sessions.Clone())
	if sessions == nil {
		sessions = []progress.WatchSession{}
	}
	achievements := []reward.Achievement(r.Achievements.Clone())
	if achievements == nil {
		achievements = []reward.Achievement{}
	}
	return ProgressView{
		ID:                   r.ID,
		UserID:               r.UserID,
		LessonID:             r.LessonID,
		Status:               string(r.Status),
		WatchTime:            r.WatchTime,
		CompletionPercentage: r.CompletionPercentage,
		IsCompleted:          r.IsCompleted,
		StartedAt:            optionalTime(r.StartedAt),
		CompletedAt:          optionalTime(r.CompletedAt),
		LastWatch:            r.LastWatch,
		Sessions:             sessions,
		ArchivedSessions:     r.ArchivedSessions,
		TimeSpent:            r.TimeSpent,
		Rating:               r.Rating,
		PointsEarned:         r.PointsEarned,
		Attempts:             r.Attempts,
		StreakCount:          r.StreakCount,
		Bookmarked:           r.Bookmarked,
		BookmarkedAt:         optionalTime(r.BookmarkedAt),
		Achievements:         achievements,
		Engagement:           r.Engagement,
		Notes:                r.Notes,
		UpdatedAt:            r.UpdatedAt,
	}
}

// ProfileView - представление профиля с прогрессом по уровням.
type ProfileView struct {
	ID                string               `json:"id"`
	Role              string               `json:"role"`
	TotalPoints       int                  `json:"totalPoints"`
	Level             int                  `json:"level"`
	PointsToNextLevel int                  `json:"pointsToNextLevel"`
	StreakDays        int                  `json:"streakDays"`
	LastActiveDate    *time.Time           `json:"lastActiveDate,omitempty"`
	Achievements      []reward.Achievement `json:"achievements"`
}

// NewProfileView строит представление профиля.
func NewProfileView(u *user.User) ProfileView {
	achievements := []reward.Achievement(u.Achievements.Clone())
	if achievements == nil {
		achievements = []reward.Achievement{}
	}
	return ProfileView{
		ID:                u.ID,
		Role:              string(u.Role),
		TotalPoints:       u.TotalPoints,
		Level:             u.Level,
		PointsToNextLevel: reward.PointsToNextLevel(u.TotalPoints),
		StreakDays:        u.StreakDays,
		LastActiveDate:    optionalTime(u.LastActiveDate),
		Achievements:      achievements,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
