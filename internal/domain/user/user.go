// Package user содержит частичную модель профиля пользователя:
// баланс очков, уровень, серию дней и достижения профиля.
package user

import (
	"context"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

// Role - роль пользователя.
type Role string

const (
	RoleLearner Role = "learner"
	RoleAdmin   Role = "admin"
)

// IsValid проверяет роль.
func (r Role) IsValid() bool {
	return r == RoleLearner || r == RoleAdmin
}

// User - профиль пользователя в части, нужной геймификации.
type User struct {
	ID             string
	Role           Role
	TotalPoints    int
	Level          int
	StreakDays     int
	LastActiveDate time.Time
	Achievements   reward.Achievements
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New создаёт профиль с нулевым балансом.
func New(id string, role Role, now time.Time) (*User, error) {
	if id == "" {
		return nil, shared.Invalid("user", "New", "user id is required")
	}
	if !role.IsValid() {
		role = RoleLearner
	}
	return &User{
		ID:        id,
		Role:      role,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LevelChange - результат начисления очков.
type LevelChange struct {
	OldLevel  int
	NewLevel  int
	LeveledUp bool
}

// AddPoints начисляет очки и пересчитывает уровень. Уровень не понижается.
func (u *User) AddPoints(points int, now time.Time) (LevelChange, error) {
	if points < 0 {
		return LevelChange{}, shared.ErrNegativePoints
	}
	old := u.Level
	if old < 1 {
		old = 1
	}
	u.TotalPoints += points
	u.Level = reward.NextLevel(old, u.TotalPoints)
	u.UpdatedAt = now

	return LevelChange{
		OldLevel:  old,
		NewLevel:  u.Level,
		LeveledUp: u.Level > old,
	}, nil
}

// UnlockAchievement добавляет достижение профиля. Повтор - no-op, false.
func (u *User) UnlockAchievement(name string, typ reward.AchievementType, now time.Time) bool {
	if !u.Achievements.Add(name, typ, now) {
		return false
	}
	u.UpdatedAt = now
	return true
}

// IsAdmin проверяет роль администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository хранит профили.
type Repository interface {
	// Get возвращает shared.ErrUserNotFound, если профиля нет.
	Get(ctx context.Context, id string) (*User, error)

	// Save создаёт или обновляет профиль целиком.
	Save(ctx context.Context, u *User) error
}
