package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/codec"
)

// ProgressRepository implements progress.Repository for SQLite.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// progressRow mirrors one progress_records row.
type progressRow struct {
	ID                   string        `db:"id"`
	UserID               string        `db:"user_id"`
	LessonID             string        `db:"lesson_id"`
	Status               string        `db:"status"`
	WatchTime            float64       `db:"watch_time"`
	CompletionPercentage int           `db:"completion_percentage"`
	IsCompleted          bool          `db:"is_completed"`
	StartedAt            sql.NullTime  `db:"started_at"`
	CompletedAt          sql.NullTime  `db:"completed_at"`
	LastPosition         float64       `db:"last_position"`
	LastWatchAt          sql.NullTime  `db:"last_watch_at"`
	Sessions             string        `db:"sessions"`
	SessionCount         int           `db:"session_count"`
	OpenSessionUnix      sql.NullInt64 `db:"open_session_unix"`
	ArchivedSessions     int           `db:"archived_sessions"`
	TimeSpent            int           `db:"time_spent"`
	Rating               sql.NullInt64 `db:"rating"`
	PointsEarned         int           `db:"points_earned"`
	Attempts             int           `db:"attempts"`
	StreakCount          int           `db:"streak_count"`
	Bookmarked           bool          `db:"bookmarked"`
	BookmarkedAt         sql.NullTime  `db:"bookmarked_at"`
	Achievements         string        `db:"achievements"`
	AttentionLevel       int           `db:"attention_level"`
	EnjoymentLevel       int           `db:"enjoyment_level"`
	ConfidenceLevel      int           `db:"confidence_level"`
	Notes                string        `db:"notes"`
	CreatedAt            time.Time     `db:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at"`
}

const progressSelect = `
	SELECT id, user_id, lesson_id, status, watch_time, completion_percentage, is_completed,
	       started_at, completed_at, last_position, last_watch_at,
	       sessions, session_count, open_session_unix, archived_sessions, time_spent,
	       rating, points_earned, attempts, streak_count, bookmarked, bookmarked_at,
	       achievements, attention_level, enjoyment_level, confidence_level, notes,
	       created_at, updated_at
	FROM progress_records`

// Create inserts a new record. A duplicate (user, lesson) pair is a conflict.
func (r *ProgressRepository) Create(ctx context.Context, rec *progress.Record) error {
	row, err := toProgressRow(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO progress_records (
			id, user_id, lesson_id, status, watch_time, completion_percentage, is_completed,
			started_at, completed_at, last_position, last_watch_at,
			sessions, session_count, open_session_unix, archived_sessions, time_spent,
			rating, points_earned, attempts, streak_count, bookmarked, bookmarked_at,
			achievements, attention_level, enjoyment_level, confidence_level, notes,
			created_at, updated_at
		) VALUES (
			:id, :user_id, :lesson_id, :status, :watch_time, :completion_percentage, :is_completed,
			:started_at, :completed_at, :last_position, :last_watch_at,
			:sessions, :session_count, :open_session_unix, :archived_sessions, :time_spent,
			:rating, :points_earned, :attempts, :streak_count, :bookmarked, :bookmarked_at,
			:achievements, :attention_level, :enjoyment_level, :confidence_level, :notes,
			:created_at, :updated_at
		)`

	if _, err := r.db.db.NamedExecContext(ctx, query, row); err != nil {
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
	var row progressRow
	err := r.db.db.GetContext(ctx, &row, progressSelect+` WHERE user_id = ? AND lesson_id = ?`, userID, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	return row.toRecord()
}

// Save overwrites the whole aggregate. created_at never changes.
func (r *ProgressRepository) Save(ctx context.Context, rec *progress.Record) error {
	row, err := toProgressRow(rec)
	if err != nil {
		return err
	}

	query := `
		UPDATE progress_records SET
			status = :status, watch_time = :watch_time,
			completion_percentage = :completion_percentage, is_completed = :is_completed,
			started_at = :started_at, completed_at = :completed_at,
			last_position = :last_position, last_watch_at = :last_watch_at,
			sessions = :sessions, session_count = :session_count,
			open_session_unix = :open_session_unix, archived_sessions = :archived_sessions,
			time_spent = :time_spent, rating = :rating, points_earned = :points_earned,
			attempts = :attempts, streak_count = :streak_count,
			bookmarked = :bookmarked, bookmarked_at = :bookmarked_at,
			achievements = :achievements, attention_level = :attention_level,
			enjoyment_level = :enjoyment_level, confidence_level = :confidence_level,
			notes = :notes, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id AND lesson_id = :lesson_id`

	res, err := r.db.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to save progress record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save progress record: %w", err)
	}
	if n == 0 {
		return shared.ErrRecordNotFound
	}
	return nil
}

// ListByUser returns all records of a user, oldest first.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*progress.Record, error) {
	return r.list(ctx, progressSelect+` WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// ListBookmarked returns bookmarked records, newest bookmark first.
func (r *ProgressRepository) ListBookmarked(ctx context.Context, userID string) ([]*progress.Record, error) {
	return r.list(ctx, progressSelect+` WHERE user_id = ? AND bookmarked = 1 ORDER BY bookmarked_at DESC, id`, userID)
}

// ListOversized returns records holding more than maxSessions detailed sessions.
func (r *ProgressRepository) ListOversized(ctx context.Context, maxSessions, limit int) ([]*progress.Record, error) {
	return r.list(ctx, progressSelect+` WHERE session_count > ? ORDER BY session_count DESC LIMIT ?`, maxSessions, limit)
}

// ListAbandoned returns records whose open session started before openedBefore.
func (r *ProgressRepository) ListAbandoned(ctx context.Context, openedBefore time.Time, limit int) ([]*progress.Record, error) {
	return r.list(ctx, progressSelect+`
		WHERE open_session_unix IS NOT NULL AND open_session_unix < ?
		ORDER BY open_session_unix LIMIT ?`, openedBefore.UnixMilli(), limit)
}

func (r *ProgressRepository) list(ctx context.Context, query string, args ...any) ([]*progress.Record, error) {
	var rows []progressRow
	if err := r.db.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}

	out := make([]*progress.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

func toProgressRow(rec *progress.Record) (*progressRow, error) {
	sessions, err := codec.EncodeSessions(rec.Sessions)
	if err != nil {
		return nil, err
	}
	achievements, err := codec.EncodeAchievements(rec.Achievements)
	if err != nil {
		return nil, err
	}

	row := &progressRow{
		ID:                   rec.ID,
		UserID:               rec.UserID,
		LessonID:             rec.LessonID,
		Status:               string(rec.Status),
		WatchTime:            rec.WatchTime,
		CompletionPercentage: rec.CompletionPercentage,
		IsCompleted:          rec.IsCompleted,
		StartedAt:            nullTime(rec.StartedAt),
		CompletedAt:          nullTime(rec.CompletedAt),
		LastPosition:         rec.LastWatch.Position,
		LastWatchAt:          nullTime(rec.LastWatch.Timestamp),
		Sessions:             string(sessions),
		SessionCount:         len(rec.Sessions),
		ArchivedSessions:     rec.ArchivedSessions,
		TimeSpent:            rec.TimeSpent,
		PointsEarned:         rec.PointsEarned,
		Attempts:             rec.Attempts,
		StreakCount:          rec.StreakCount,
		Bookmarked:           rec.Bookmarked,
		BookmarkedAt:         nullTime(rec.BookmarkedAt),
		Achievements:         string(achievements),
		AttentionLevel:       rec.Engagement.AttentionLevel,
		EnjoymentLevel:       rec.Engagement.EnjoymentLevel,
		ConfidenceLevel:      rec.Engagement.ConfidenceLevel,
		Notes:                rec.Notes,
		CreatedAt:            rec.CreatedAt.UTC(),
		UpdatedAt:            rec.UpdatedAt.UTC(),
	}
	if open := rec.OpenSessionStartedAt(); !open.IsZero() {
		row.OpenSessionUnix = sql.NullInt64{Int64: open.UnixMilli(), Valid: true}
	}
	if rec.Rating != 0 {
		row.Rating = sql.NullInt64{Int64: int64(rec.Rating), Valid: true}
	}
	return row, nil
}

func (row *progressRow) toRecord() (*progress.Record, error) {
	rec := &progress.Record{
		ID:                   row.ID,
		UserID:               row.UserID,
		LessonID:             row.LessonID,
		Status:               progress.Status(row.Status),
		WatchTime:            row.WatchTime,
		CompletionPercentage: row.CompletionPercentage,
		IsCompleted:          row.IsCompleted,
		StartedAt:            fromNullTime(row.StartedAt),
		CompletedAt:          fromNullTime(row.CompletedAt),
		LastWatch: progress.LastWatch{
			Position:  row.LastPosition,
			Timestamp: fromNullTime(row.LastWatchAt),
		},
		ArchivedSessions: row.ArchivedSessions,
		TimeSpent:        row.TimeSpent,
		Rating:           int(row.Rating.Int64),
		PointsEarned:     row.PointsEarned,
		Attempts:         row.Attempts,
		StreakCount:      row.StreakCount,
		Bookmarked:       row.Bookmarked,
		BookmarkedAt:     fromNullTime(row.BookmarkedAt),
		Engagement: reward.Engagement{
			AttentionLevel:  row.AttentionLevel,
			EnjoymentLevel:  row.EnjoymentLevel,
			ConfidenceLevel: row.ConfidenceLevel,
		},
		Notes:     row.Notes,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}

	var err error
	if rec.Sessions, err = codec.DecodeSessions([]byte(row.Sessions)); err != nil {
		return nil, err
	}
	if rec.Achievements, err = codec.DecodeAchievements([]byte(row.Achievements)); err != nil {
		return nil, err
	}
	return rec, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
