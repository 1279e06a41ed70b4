// Package main - точка входа HTTP API сервиса прогресса уроков.
//
// API принимает события просмотра видео, ведёт записи прогресса,
// начисляет очки и достижения и отдаёт статистику обучения.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/application/command"
	"github.com/kidlearn/learning-hub/internal/application/eventhandler"
	"github.com/kidlearn/learning-hub/internal/application/query"
	"github.com/kidlearn/learning-hub/internal/infrastructure/messaging"
	"github.com/kidlearn/learning-hub/internal/infrastructure/metrics"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence"
	"github.com/kidlearn/learning-hub/internal/infrastructure/persistence/redis"
	httpapi "github.com/kidlearn/learning-hub/internal/interface/http"
	"github.com/kidlearn/learning-hub/internal/interface/http/handlers"
	"github.com/kidlearn/learning-hub/pkg/circuitbreaker"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/retry"
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

	log := setupLogger(cfg)
	log.Info("starting learning hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := persistence.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing store...")
		store.Close()
	}()
	log.Info("store ready", logger.String("driver", store.Driver))

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(store.Pinger))

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache      *redis.Cache
		stats      *redis.StatisticsCache
		statsCache query.StatsCache
		limiter    httpapi.Limiter
	)
	if !cfg.Redis.Disabled {
		cache, err = connectRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, running without cache", logger.Err(err))
		} else {
			defer cache.Close()
			stats = redis.NewStatisticsCache(cache, cfg.Redis.StatsTTL).
				WithBreaker(circuitbreaker.CacheBreaker("stats_cache", func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						logger.String("breaker", name),
						logger.String("from", from.String()),
						logger.String("to", to.String()))
				}))
			statsCache = stats
			if cfg.HTTP.RateLimit > 0 {
				limiter = redis.NewRateLimiter(cache, cfg.HTTP.RateLimit, time.Minute)
			}
			health.AddCheck("redis", handlers.NewCacheCheck(cache))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if err := bus.SubscribeAll(metrics.ObserveEvent); err != nil {
		return fmt.Errorf("subscribe metrics: %w", err)
	}
	if cache != nil {
		invalidator := eventhandler.NewOnProgressChangedHandler(stats, log)
		if err := invalidator.Register(bus); err != nil {
			return fmt.Errorf("subscribe stats invalidation: %w", err)
		}
		if cfg.Features.IsEnabled(config.FeatureEventsRedisForward, "") {
			if err := startForwarding(ctx, cache, bus, log); err != nil {
				log.Warn("event forwarding disabled", logger.Err(err))
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	deps := command.Deps{
		Records:          store.Records,
		Lessons:          store.Lessons,
		Users:            store.Users,
		Publisher:        bus,
		Clock:            clock,
		Features:         cfg.Features,
		Logger:           log,
		SessionRetention: cfg.Progress.SessionRetention,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpapi.NewServer(httpapi.ConfigFrom(cfg), httpapi.Dependencies{
		StartSession:     command.NewStartSessionHandler(deps),
		EndSession:       command.NewEndSessionHandler(deps),
		RecordProgress:   command.NewRecordProgressHandler(deps),
		RateLesson:       command.NewRateLessonHandler(deps),
		BookmarkLesson:   command.NewBookmarkLessonHandler(deps),
		UpdateEngagement: command.NewUpdateEngagementHandler(deps),
		RecordActivity:   command.NewRecordActivityHandler(deps),
		GetStatistics: query.NewGetStatisticsHandler(query.GetStatisticsConfig{
			Records:       store.Records,
			Lessons:       store.Lessons,
			Cache:         statsCache,
			Features:      cfg.Features,
			Clock:         clock,
			Location:      cfg.App.Location,
			Logger:        log,
			OnCacheLookup: metrics.RecordStatsCache,
		}),
		GetProgress:   query.NewGetProgressHandler(store.Records),
		ListBookmarks: query.NewListBookmarksHandler(store.Records),
		GetProfile:    query.NewGetProfileHandler(store.Users),
		Limiter:       limiter,
		HealthChecker: health,
		Logger:        log,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	uptime := server.Uptime()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("http shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed", logger.Duration("uptime", uptime))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	opts.Format = cfg.Observability.LogFormat
	if cfg.IsProduction() {
		opts.Format = "json"
	}
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

// connectRedis подключается к Redis с повторами на старте.
func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Cache, error) {
	rc := redis.DefaultConfig()
	rc.URL = cfg.Redis.URL
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout

	var cache *redis.Cache
	err := retry.StartupRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err))
	}).Do(ctx, func(ctx context.Context) error {
		c, err := redis.NewCache(ctx, rc)
		if err != nil {
			return err
		}
		cache = c
		return nil
	})
	return cache, err
}

// startForwarding публикует события в Redis и проигрывает события других инстансов.
func startForwarding(ctx context.Context, cache *redis.Cache, bus *messaging.InMemoryEventBus, log *logger.Logger) error {
	fwd, err := messaging.NewRedisForwarder(messaging.RedisForwarderConfig{
		Transport: cache,
		Local:     bus,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	messages, err := cache.SubscribePayloads(ctx, fwd.Channel())
	if err != nil {
		return err
	}
	if err := bus.SubscribeAll(fwd.Forward); err != nil {
		return err
	}
	go fwd.Listen(ctx, messages)

	log.Info("forwarding events to redis", logger.String("channel", fwd.Channel()))
	return nil
}
