// Package lesson describes the read-only lesson catalogue the progress
// engine consults for category, difficulty, duration and base points.
package lesson

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/reward"
)

// Lesson is the subset of catalogue data the progress engine needs.
type Lesson struct {
	ID         string
	Title      string
	Category   string
	Difficulty reward.Difficulty
	Duration   int // seconds, 0 when unknown
	Points     int // base points
	IsActive   bool
}

// HasDuration reports whether the catalogue knows the video length.
func (l *Lesson) HasDuration() bool {
	return l.Duration > 0
}

// Repository is the read side of the lesson catalogue.
// Catalogue CRUD lives outside this service.
type Repository interface {
	// Get returns shared.ErrLessonNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Lesson, error)

	// GetMany returns the lessons that exist, keyed by id. Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) (map[string]*Lesson, error)

	// CountActive returns the number of active lessons.
	CountActive(ctx context.Context) (int, error)

	// Upsert stores a lesson. Used by seeding and tests.
	Upsert(ctx context.Context, l *Lesson) error
}
