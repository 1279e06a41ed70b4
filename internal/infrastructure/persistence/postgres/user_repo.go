package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/codec"
)

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Get returns a user profile by id.
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, role, total_points, level, streak_days, last_active_date,
		       achievements, created_at, updated_at
		FROM users
		WHERE id = $1`

	var (
		u            user.User
		role         string
		lastActive   *time.Time
		achievements []byte
	)
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&u.ID, &role, &u.TotalPoints, &u.Level, &u.StreakDays, &lastActive,
		&achievements, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Role = user.Role(role)
	u.LastActiveDate = codec.FromNullTime(lastActive)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	if u.Achievements, err = codec.DecodeAchievements(achievements); err != nil {
		return nil, err
	}
	return &u, nil
}

// Save inserts or overwrites a user profile.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	achievements, err := codec.EncodeAchievements(u.Achievements)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, role, total_points, level, streak_days, last_active_date,
		                   achievements, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			total_points = EXCLUDED.total_points,
			level = EXCLUDED.level,
			streak_days = EXCLUDED.streak_days,
			last_active_date = EXCLUDED.last_active_date,
			achievements = EXCLUDED.achievements,
			updated_at = EXCLUDED.updated_at`

	_, err = r.conn.Exec(ctx, query,
		u.ID, string(u.Role), u.TotalPoints, u.Level, u.StreakDays,
		codec.NullTime(u.LastActiveDate), achievements, u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
