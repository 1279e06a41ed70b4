package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/codec"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	id, user_id, lesson_id, status, watch_time, completion_percentage, is_completed,
	started_at, completed_at, last_position, last_watch_at,
	sessions, session_count, open_session_at, archived_sessions, time_spent,
	rating, points_earned, attempts, streak_count, bookmarked, bookmarked_at,
	achievements, attention_level, enjoyment_level, confidence_level, notes,
	created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new record. A duplicate (user, lesson) pair is a conflict.
func (r *ProgressRepository) Create(ctx context.Context, rec *progress.Record) error {
	args, err := progressArgs(rec)
	if err != nil {
		return err
	}

	query := `INSERT INTO progress_records (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("progress", "Create", shared.ErrConflict,
				"progress record already exists for user and lesson", err)
		}
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	return nil
}

// Get returns the record of a (user, lesson) pair.
func (r *ProgressRepository) Get(ctx context.Context, userID, lessonID string) (*progress.Record, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1 AND lesson_id = $2`

	rec, err := scanProgress(r.conn.QueryRow(ctx, query, userID, lessonID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	return rec, nil
}

// Save overwrites the whole aggregate.
func (r *ProgressRepository) Save(ctx context.Context, rec *progress.Record) error {
	args, err := progressArgs(rec)
	if err != nil {
		return err
	}

	query := `
		UPDATE progress_records SET
			status = $4, watch_time = $5, completion_percentage = $6, is_completed = $7,
			started_at = $8, completed_at = $9, last_position = $10, last_watch_at = $11,
			sessions = $12, session_count = $13, open_session_at = $14,
			archived_sessions = $15, time_spent = $16, rating = $17, points_earned = $18,
			attempts = $19, streak_count = $20, bookmarked = $21, bookmarked_at = $22,
			achievements = $23, attention_level = $24, enjoyment_level = $25,
			confidence_level = $26, notes = $27, updated_at = $28
		WHERE id = $1 AND user_id = $2 AND lesson_id = $3`

	// created_at never changes after insert.
	args = append(args[:27:27], args[28])

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save progress record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing
// ─────────────────────────────────────────────────────────────────────────────

// ListByUser returns all records of a user, oldest first.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*progress.Record, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1
		ORDER BY created_at, id`
	return r.list(ctx, query, userID)
}

// ListBookmarked returns bookmarked records, newest bookmark first.
func (r *ProgressRepository) ListBookmarked(ctx context.Context, userID string) ([]*progress.Record, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE user_id = $1 AND bookmarked
		ORDER BY bookmarked_at DESC, id`
	return r.list(ctx, query, userID)
}

// ListOversized returns records holding more than maxSessions detailed sessions.
func (r *ProgressRepository) ListOversized(ctx context.Context, maxSessions, limit int) ([]*progress.Record, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE session_count > $1
		ORDER BY session_count DESC
		LIMIT $2`
	return r.list(ctx, query, maxSessions, limit)
}

// ListAbandoned returns records whose open session started before openedBefore.
func (r *ProgressRepository) ListAbandoned(ctx context.Context, openedBefore time.Time, limit int) ([]*progress.Record, error) {
	query := `SELECT ` + progressColumns + `
		FROM progress_records
		WHERE open_session_at IS NOT NULL AND open_session_at < $1
		ORDER BY open_session_at
		LIMIT $2`
	return r.list(ctx, query, openedBefore.UTC(), limit)
}

func (r *ProgressRepository) list(ctx context.Context, query string, args ...any) ([]*progress.Record, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	var out []*progress.Record
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

func progressArgs(rec *progress.Record) ([]any, error) {
	sessions, err := codec.EncodeSessions(rec.Sessions)
	if err != nil {
		return nil, err
	}
	achievements, err := codec.EncodeAchievements(rec.Achievements)
	if err != nil {
		return nil, err
	}

	return []any{
		rec.ID,
		rec.UserID,
		rec.LessonID,
		string(rec.Status),
		rec.WatchTime,
		rec.CompletionPercentage,
		rec.IsCompleted,
		codec.NullTime(rec.StartedAt),
		codec.NullTime(rec.CompletedAt),
		rec.LastWatch.Position,
		codec.NullTime(rec.LastWatch.Timestamp),
		sessions,
		len(rec.Sessions),
		codec.NullTime(rec.OpenSessionStartedAt()),
		rec.ArchivedSessions,
		rec.TimeSpent,
		codec.NullInt(rec.Rating),
		rec.PointsEarned,
		rec.Attempts,
		rec.StreakCount,
		rec.Bookmarked,
		codec.NullTime(rec.BookmarkedAt),
		achievements,
		rec.Engagement.AttentionLevel,
		rec.Engagement.EnjoymentLevel,
		rec.Engagement.ConfidenceLevel,
		rec.Notes,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	}, nil
}

func scanProgress(row pgx.Row) (*progress.Record, error) {
	var (
		rec                                 progress.Record
		status                              string
		startedAt, completedAt, lastWatchAt *time.Time
		openSessionAt, bookmarkedAt         *time.Time
		sessions, achievements              []byte
		sessionCount                        int
		rating                              *int
	)

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.LessonID,
		&status,
		&rec.WatchTime,
		&rec.CompletionPercentage,
		&rec.IsCompleted,
		&startedAt,
		&completedAt,
		&rec.LastWatch.Position,
		&lastWatchAt,
		&sessions,
		&sessionCount,
		&openSessionAt,
		&rec.ArchivedSessions,
		&rec.TimeSpent,
		&rating,
		&rec.PointsEarned,
		&rec.Attempts,
		&rec.StreakCount,
		&rec.Bookmarked,
		&bookmarkedAt,
		&achievements,
		&rec.Engagement.AttentionLevel,
		&rec.Engagement.EnjoymentLevel,
		&rec.Engagement.ConfidenceLevel,
		&rec.Notes,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = progress.Status(status)
	rec.StartedAt = codec.FromNullTime(startedAt)
	rec.CompletedAt = codec.FromNullTime(completedAt)
	rec.LastWatch.Timestamp = codec.FromNullTime(lastWatchAt)
	rec.BookmarkedAt = codec.FromNullTime(bookmarkedAt)
	rec.Rating = codec.FromNullInt(rating)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	if rec.Sessions, err = codec.DecodeSessions(sessions); err != nil {
		return nil, err
	}
	if rec.Achievements, err = codec.DecodeAchievements(achievements); err != nil {
		return nil, err
	}
	return &rec, nil
}
