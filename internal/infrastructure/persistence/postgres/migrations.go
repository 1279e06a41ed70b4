package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LESSONS & USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Lesson catalogue (read-only for this service)
CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    difficulty VARCHAR(10) NOT NULL,
    duration INTEGER NOT NULL DEFAULT 0,
    points INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('easy', 'medium', 'hard')),
    CONSTRAINT valid_duration CHECK (duration >= 0),
    CONSTRAINT valid_points CHECK (points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_lessons_active ON lessons(is_active) WHERE is_active;

-- User gamification profile
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    role VARCHAR(10) NOT NULL DEFAULT 'learner',
    total_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    streak_days INTEGER NOT NULL DEFAULT 0,
    last_active_date TIMESTAMP WITH TIME ZONE,
    achievements JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('learner', 'admin')),
    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_level CHECK (level BETWEEN 1 AND 10),
    CONSTRAINT valid_streak CHECK (streak_days >= 0)
);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS lessons;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS progress_records (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    lesson_id TEXT NOT NULL REFERENCES lessons(id),
    status VARCHAR(20) NOT NULL DEFAULT 'not_started',
    watch_time DOUBLE PRECISION NOT NULL DEFAULT 0,
    completion_percentage INTEGER NOT NULL DEFAULT 0,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    started_at TIMESTAMP WITH TIME ZONE,
    completed_at TIMESTAMP WITH TIME ZONE,
    last_position DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_watch_at TIMESTAMP WITH TIME ZONE,

    -- Detailed sessions; older ones are rolled into archived_sessions
    sessions JSONB NOT NULL DEFAULT '[]'::jsonb,
    session_count INTEGER NOT NULL DEFAULT 0,
    open_session_at TIMESTAMP WITH TIME ZONE,
    archived_sessions INTEGER NOT NULL DEFAULT 0,
    time_spent INTEGER NOT NULL DEFAULT 0,

    rating SMALLINT,
    points_earned INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 1,
    streak_count INTEGER NOT NULL DEFAULT 0,
    bookmarked BOOLEAN NOT NULL DEFAULT FALSE,
    bookmarked_at TIMESTAMP WITH TIME ZONE,
    achievements JSONB NOT NULL DEFAULT '[]'::jsonb,
    attention_level SMALLINT NOT NULL DEFAULT 0,
    enjoyment_level SMALLINT NOT NULL DEFAULT 0,
    confidence_level SMALLINT NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_progress_user_lesson UNIQUE (user_id, lesson_id),
    CONSTRAINT valid_progress_status CHECK (status IN ('not_started', 'in_progress', 'completed')),
    CONSTRAINT valid_watch_time CHECK (watch_time >= 0),
    CONSTRAINT valid_percentage CHECK (completion_percentage BETWEEN 0 AND 100),
    CONSTRAINT valid_rating CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
    CONSTRAINT valid_attempts CHECK (attempts >= 1),
    CONSTRAINT valid_time_spent CHECK (time_spent >= 0)
);

CREATE INDEX IF NOT EXISTS idx_progress_user ON progress_records(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_progress_bookmarked ON progress_records(user_id, bookmarked_at DESC) WHERE bookmarked;
CREATE INDEX IF NOT EXISTS idx_progress_open_session ON progress_records(open_session_at) WHERE open_session_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_progress_session_count ON progress_records(session_count);
`

const migration002Down = `
DROP TABLE IF EXISTS progress_records;
`
