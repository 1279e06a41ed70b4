package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

// LessonRepository implements lesson.Repository for SQLite.
type LessonRepository struct {
	db *DB
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(db *DB) *LessonRepository {
	return &LessonRepository{db: db}
}

type lessonRow struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	Category   string `db:"category"`
	Difficulty string `db:"difficulty"`
	Duration   int    `db:"duration"`
	Points     int    `db:"points"`
	IsActive   bool   `db:"is_active"`
}

func (row lessonRow) toLesson() *lesson.Lesson {
	return &lesson.Lesson{
		ID:         row.ID,
		Title:      row.Title,
		Category:   row.Category,
		Difficulty: reward.Difficulty(row.Difficulty),
		Duration:   row.Duration,
		Points:     row.Points,
		IsActive:   row.IsActive,
	}
}

const lessonSelect = `SELECT id, title, category, difficulty, duration, points, is_active FROM lessons`

// Get returns a lesson by id.
func (r *LessonRepository) Get(ctx context.Context, id string) (*lesson.Lesson, error) {
	var row lessonRow
	if err := r.db.db.GetContext(ctx, &row, lessonSelect+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return row.toLesson(), nil
}

// GetMany returns the lessons that exist among ids.
func (r *LessonRepository) GetMany(ctx context.Context, ids []string) (map[string]*lesson.Lesson, error) {
	out := make(map[string]*lesson.Lesson, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(lessonSelect+` WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build lesson query: %w", err)
	}

	var rows []lessonRow
	if err := r.db.db.SelectContext(ctx, &rows, r.db.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toLesson()
	}
	return out, nil
}

// CountActive returns the number of active lessons.
func (r *LessonRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM lessons WHERE is_active = 1`); err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// Upsert inserts or replaces a lesson.
func (r *LessonRepository) Upsert(ctx context.Context, l *lesson.Lesson) error {
	query := `
		INSERT INTO lessons (id, title, category, difficulty, duration, points, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			difficulty = excluded.difficulty,
			duration = excluded.duration,
			points = excluded.points,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`

	_, err := r.db.db.ExecContext(ctx, query,
		l.ID, l.Title, l.Category, string(l.Difficulty), l.Duration, l.Points, l.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert lesson: %w", err)
	}
	return nil
}
