// Package persistence selects and opens the configured progress store.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/user"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/sqlite"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/retry"
)

// Pinger is satisfied by both store backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Driver  string
	Records progress.Repository
	Lessons lesson.Repository
	Users   user.Repository
	Pinger  Pinger

	close func()
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the configured backend, retrying while it comes up.
// Postgres migrations run when AutoMigrate is set; sqlite creates its schema on open.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	onRetry := func(attempt int, err error, delay time.Duration) {
		log.Warn("store not ready, retrying",
			logger.String("driver", cfg.Driver),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err))
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		opts := postgres.DefaultPoolOptions()
		if cfg.MaxOpenConns > 0 {
			opts.MaxConns = int32(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 && cfg.MaxIdleConns <= cfg.MaxOpenConns {
			opts.MinConns = int32(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			opts.MaxConnLifetime = cfg.ConnMaxLifetime
		}
		if cfg.ConnMaxIdleTime > 0 {
			opts.MaxConnIdleTime = cfg.ConnMaxIdleTime
		}

		var conn *postgres.Connection
		err := retry.StartupRetrier(onRetry).Do(ctx, func(ctx context.Context) error {
			c, err := postgres.NewConnectionFromURL(ctx, cfg.URL, opts)
			if err != nil {
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if cfg.AutoMigrate {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", logger.Int("count", applied))
		}

		return &Store{
			Driver:  cfg.Driver,
			Records: postgres.NewProgressRepository(conn),
			Lessons: postgres.NewLessonRepository(conn),
			Users:   postgres.NewUserRepository(conn),
			Pinger:  conn,
			close:   conn.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Store{
			Driver:  cfg.Driver,
			Records: sqlite.NewProgressRepository(db),
			Lessons: sqlite.NewLessonRepository(db),
			Users:   sqlite.NewUserRepository(db),
			Pinger:  db,
			close:   func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
