// Package main - утилита миграций PostgreSQL.
//
// Использование:
//
//	migrate up      применить все новые миграции
//	migrate down    откатить последнюю миграцию
//	migrate status  показать состояние миграций
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/retry"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status")
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, action string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to postgres only, driver is %q", cfg.Database.Driver)
	}

	log := logger.New(logger.Options{Output: os.Stderr, Level: logger.LevelInfo, Format: "console"})

	var conn *postgres.Connection
	err = retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready, retrying", logger.Int("attempt", attempt), logger.Err(err))
	}).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.DefaultPoolOptions())
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	m := postgres.NewMigrator(conn)
	switch action {
	case "up":
		n, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", n))
	case "down":
		if err := m.Rollback(ctx); err != nil {
			return err
		}
		log.Info("last migration rolled back")
	case "status":
		migrations, err := m.Status(ctx)
		if err != nil {
			return err
		}
		for _, mig := range migrations {
			state := "pending"
			if mig.IsApplied {
				state = "applied " + mig.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%03d %-28s %s\n", mig.Version, mig.Name, state)
		}
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
