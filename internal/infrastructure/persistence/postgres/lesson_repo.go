package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

// LessonRepository implements lesson.Repository for PostgreSQL.
type LessonRepository struct {
	conn *Connection
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(conn *Connection) *LessonRepository {
	return &LessonRepository{conn: conn}
}

const lessonColumns = `id, title, category, difficulty, duration, points, is_active`

// Get returns a lesson by id.
func (r *LessonRepository) Get(ctx context.Context, id string) (*lesson.Lesson, error) {
	var (
		l          lesson.Lesson
		difficulty string
	)
	err := r.conn.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id).Scan(
		&l.ID, &l.Title, &l.Category, &difficulty, &l.Duration, &l.Points, &l.IsActive,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	l.Difficulty = reward.Difficulty(difficulty)
	return &l, nil
}

// GetMany returns the lessons that exist among ids.
func (r *LessonRepository) GetMany(ctx context.Context, ids []string) (map[string]*lesson.Lesson, error) {
	out := make(map[string]*lesson.Lesson, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.conn.Query(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l          lesson.Lesson
			difficulty string
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Category, &difficulty, &l.Duration, &l.Points, &l.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		l.Difficulty = reward.Difficulty(difficulty)
		out[l.ID] = &l
	}
	return out, rows.Err()
}

// CountActive returns the number of active lessons.
func (r *LessonRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM lessons WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// Upsert inserts or replaces a lesson.
func (r *LessonRepository) Upsert(ctx context.Context, l *lesson.Lesson) error {
	query := `
		INSERT INTO lessons (id, title, category, difficulty, duration, points, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			difficulty = EXCLUDED.difficulty,
			duration = EXCLUDED.duration,
			points = EXCLUDED.points,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	_, err := r.conn.Exec(ctx, query,
		l.ID, l.Title, l.Category, string(l.Difficulty), l.Duration, l.Points, l.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert lesson: %w", err)
	}
	return nil
}
