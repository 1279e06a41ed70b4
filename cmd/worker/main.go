// Package main - точка входа для фоновых процессов (Worker) сервиса прогресса.
//
// Worker отвечает за периодическое обслуживание записей прогресса:
// - Архивация старых сессий просмотра сверх лимита хранения
// - Закрытие брошенных сессий, которые клиент так и не завершил
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/application/command"
	"github.com/kidlearn/learning-hub/internal/infrastructure/metrics"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence"
	"github.com/kidlearn/learning-hub/internal/infrastructure/scheduler"
	"github.com/kidlearn/learning-hub/internal/infrastructure/scheduler/jobs"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	log := logger.New(opts).With(logger.String("service", cfg.App.Name+"-worker"))

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := persistence.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	deps := command.Deps{
		Records:          store.Records,
		Lessons:          store.Lessons,
		Users:            store.Users,
		Clock:            timeutil.SystemClock{},
		Features:         cfg.Features,
		Logger:           log,
		SessionRetention: cfg.Progress.SessionRetention,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})
	sched.OnJobComplete(func(r scheduler.JobResult) {
		metrics.RecordJob(r.JobName, r.Duration, r.Processed, r.Error)
	})

	compact := jobs.NewCompactSessionsJob(command.NewCompactSessionsHandler(deps), cfg.Scheduler.BatchSize)
	if err := sched.Register(compact, cfg.Scheduler.CompactionInterval); err != nil {
		return err
	}
	abandoned := jobs.NewCloseAbandonedSessionsJob(
		command.NewCloseAbandonedSessionsHandler(deps),
		cfg.Scheduler.AbandonedAfter,
		cfg.Scheduler.BatchSize,
	)
	if err := sched.Register(abandoned, cfg.Scheduler.AbandonedInterval); err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	if err := sched.Stop(); err != nil {
		log.Warn("scheduler stop", logger.Err(err))
	}
	for _, j := range sched.ListJobs() {
		log.Info("job summary",
			logger.String("job", j.Name),
			logger.Int64("runs", j.RunCount),
			logger.Int64("failures", j.FailCount))
	}
	log.Info("shutdown completed")
	return nil
}
