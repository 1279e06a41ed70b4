// Package sqlite is the embedded store used for local development and tests.
// It implements the same repositories as the postgres package on top of
// sqlx and go-sqlite3.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the sqlx handle.
type DB struct {
	db *sqlx.DB
}

// Open connects to the database file at path, creating parent directories,
// and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	// SQLite doesn't support multiple writers, and every new connection
	// to :memory: would see an empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{db: db}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

const schema = `
CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    difficulty TEXT NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard')),
    duration INTEGER NOT NULL DEFAULT 0 CHECK (duration >= 0),
    points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    is_active BOOLEAN NOT NULL DEFAULT 1,
    updated_at DATETIME
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    role TEXT NOT NULL DEFAULT 'learner' CHECK (role IN ('learner', 'admin')),
    total_points INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
    level INTEGER NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 10),
    streak_days INTEGER NOT NULL DEFAULT 0 CHECK (streak_days >= 0),
    last_active_date DATETIME,
    achievements TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS progress_records (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    lesson_id TEXT NOT NULL REFERENCES lessons(id),
    status TEXT NOT NULL DEFAULT 'not_started'
        CHECK (status IN ('not_started', 'in_progress', 'completed')),
    watch_time REAL NOT NULL DEFAULT 0 CHECK (watch_time >= 0),
    completion_percentage INTEGER NOT NULL DEFAULT 0 CHECK (completion_percentage BETWEEN 0 AND 100),
    is_completed BOOLEAN NOT NULL DEFAULT 0,
    started_at DATETIME,
    completed_at DATETIME,
    last_position REAL NOT NULL DEFAULT 0,
    last_watch_at DATETIME,
    sessions TEXT NOT NULL DEFAULT '[]',
    session_count INTEGER NOT NULL DEFAULT 0,
    open_session_unix INTEGER,
    archived_sessions INTEGER NOT NULL DEFAULT 0,
    time_spent INTEGER NOT NULL DEFAULT 0 CHECK (time_spent >= 0),
    rating INTEGER CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
    points_earned INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 1 CHECK (attempts >= 1),
    streak_count INTEGER NOT NULL DEFAULT 0,
    bookmarked BOOLEAN NOT NULL DEFAULT 0,
    bookmarked_at DATETIME,
    achievements TEXT NOT NULL DEFAULT '[]',
    attention_level INTEGER NOT NULL DEFAULT 0,
    enjoyment_level INTEGER NOT NULL DEFAULT 0,
    confidence_level INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    UNIQUE (user_id, lesson_id)
);

CREATE INDEX IF NOT EXISTS idx_progress_user ON progress_records(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_progress_open_session ON progress_records(open_session_unix);
CREATE INDEX IF NOT EXISTS idx_progress_session_count ON progress_records(session_count);
`
