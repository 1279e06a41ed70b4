package query

import (
	"context"
	"time"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/statistics"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATISTICS QUERY
// Сводка для дашборда ученика: завершённые уроки, время просмотра, рейтинг,
// разрезы по категориям и сложности, недельный ряд.
// Отчёт кэшируется, кэш сбрасывается событиями прогресса.
// ══════════════════════════════════════════════════════════════════════════════

// StatsCache хранит готовые отчёты.
type StatsCache interface {
	Get(ctx context.Context, userID string) (*statistics.Report, bool, error)
	Set(ctx context.Context, userID string, report *statistics.Report) error
}

// FeatureChecker сообщает, включена ли фича для пользователя.
type FeatureChecker interface {
	IsEnabled(feature, userID string) bool
}

// GetStatisticsQuery содержит параметры запроса.
type GetStatisticsQuery struct {
	UserID string
}

// GetStatisticsConfig - зависимости обработчика.
type GetStatisticsConfig struct {
	Records  progress.Repository
	Lessons  lesson.Repository
	Cache    StatsCache // nil - без кэша
	Features FeatureChecker
	Clock    timeutil.Clock
	Location *time.Location // календарные дни недельного ряда
	Logger   *logger.Logger

	// OnCacheLookup вызывается после каждого обращения к кэшу.
	OnCacheLookup func(hit bool)
}

// GetStatisticsHandler обрабатывает запрос статистики.
type GetStatisticsHandler struct {
	cfg GetStatisticsConfig
	log *logger.Logger
}

// NewGetStatisticsHandler создаёт обработчик.
func NewGetStatisticsHandler(cfg GetStatisticsConfig) *GetStatisticsHandler {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &GetStatisticsHandler{
		cfg: cfg,
		log: cfg.Logger.With(logger.Component("query"), logger.Operation("get_statistics")),
	}
}

// Handle возвращает отчёт пользователя.
// Ошибки кэша не мешают ответу: отчёт считается из хранилища.
func (h *GetStatisticsHandler) Handle(ctx context.Context, q GetStatisticsQuery) (*statistics.Report, error) {
	if q.UserID == "" {
		return nil, shared.Invalid("statistics", "Compute", "user id is required")
	}

	useCache := h.cacheEnabled(q.UserID)
	if useCache {
		report, hit, err := h.cfg.Cache.Get(ctx, q.UserID)
		if err != nil {
			h.log.Warn("stats cache read failed", logger.UserID(q.UserID), logger.Err(err))
		}
		h.observe(hit)
		if hit {
			return report, nil
		}
	}

	report, err := h.compute(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := h.cfg.Cache.Set(ctx, q.UserID, report); err != nil {
			h.log.Warn("stats cache write failed", logger.UserID(q.UserID), logger.Err(err))
		}
	}
	return report, nil
}

func (h *GetStatisticsHandler) compute(ctx context.Context, userID string) (*statistics.Report, error) {
	start := time.Now()

	records, err := h.cfg.Records.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.LessonID)
	}
	lessons, err := h.cfg.Lessons.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	active, err := h.cfg.Lessons.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	report := statistics.Compute(statistics.Input{
		Records:       records,
		Lessons:       lessons,
		ActiveLessons: active,
		Now:           h.cfg.Clock.Now(),
		Location:      h.cfg.Location,
	})

	h.log.Debug("statistics computed",
		logger.UserID(userID),
		logger.Int("records", len(records)),
		logger.Latency(time.Since(start)))
	return &report, nil
}

func (h *GetStatisticsHandler) cacheEnabled(userID string) bool {
	if h.cfg.Cache == nil {
		return false
	}
	if h.cfg.Features == nil {
		return true
	}
	return h.cfg.Features.IsEnabled(config.FeatureStatsCache, userID)
}

func (h *GetStatisticsHandler) observe(hit bool) {
	if h.cfg.OnCacheLookup != nil {
		h.cfg.OnCacheLookup(hit)
	}
}
