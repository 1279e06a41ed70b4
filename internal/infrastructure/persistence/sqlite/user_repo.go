package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/codec"
)

// UserRepository implements user.Repository for SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID             string       `db:"id"`
	Role           string       `db:"role"`
	TotalPoints    int          `db:"total_points"`
	Level          int          `db:"level"`
	StreakDays     int          `db:"streak_days"`
	LastActiveDate sql.NullTime `db:"last_active_date"`
	Achievements   string       `db:"achievements"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// Get returns a user profile by id.
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, role, total_points, level, streak_days, last_active_date,
		       achievements, created_at, updated_at
		FROM users
		WHERE id = ?`

	var row userRow
	if err := r.db.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	achievements, err := codec.DecodeAchievements([]byte(row.Achievements))
	if err != nil {
		return nil, err
	}
	return &user.User{
		ID:             row.ID,
		Role:           user.Role(row.Role),
		TotalPoints:    row.TotalPoints,
		Level:          row.Level,
		StreakDays:     row.StreakDays,
		LastActiveDate: fromNullTime(row.LastActiveDate),
		Achievements:   achievements,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}

// Save inserts or overwrites a user profile.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	achievements, err := codec.EncodeAchievements(u.Achievements)
	if err != nil {
		return err
	}

	row := userRow{
		ID:             u.ID,
		Role:           string(u.Role),
		TotalPoints:    u.TotalPoints,
		Level:          u.Level,
		StreakDays:     u.StreakDays,
		LastActiveDate: nullTime(u.LastActiveDate),
		Achievements:   string(achievements),
		CreatedAt:      u.CreatedAt.UTC(),
		UpdatedAt:      u.UpdatedAt.UTC(),
	}

	query := `
		INSERT INTO users (id, role, total_points, level, streak_days, last_active_date,
		                   achievements, created_at, updated_at)
		VALUES (:id, :role, :total_points, :level, :streak_days, :last_active_date,
		        :achievements, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			role = excluded.role,
			total_points = excluded.total_points,
			level = excluded.level,
			streak_days = excluded.streak_days,
			last_active_date = excluded.last_active_date,
			achievements = excluded.achievements,
			updated_at = excluded.updated_at`

	if _, err := r.db.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
