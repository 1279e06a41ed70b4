package command

import (
	"context"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAINTENANCE COMMANDS
// Batch jobs run by the worker: session compaction and closing sessions the
// player never ended.
// ══════════════════════════════════════════════════════════════════════════════

// MaintenanceResult reports how a batch went.
type MaintenanceResult struct {
	Scanned  int `json:"scanned"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
	Affected int `json:"affected"` // sessions dropped or closed
}

// ─────────────────────────────────────────────────────────────────────────────
// Compaction
// ─────────────────────────────────────────────────────────────────────────────

// CompactSessionsCommand folds old sessions of oversized records.
type CompactSessionsCommand struct {
	BatchSize int
}

// CompactSessionsHandler handles the CompactSessionsCommand.
type CompactSessionsHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewCompactSessionsHandler creates a new CompactSessionsHandler.
func NewCompactSessionsHandler(deps Deps) *CompactSessionsHandler {
	deps = deps.withDefaults()
	return &CompactSessionsHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("compact_sessions")),
	}
}

// Handle compacts one batch. A failed save is logged and skipped.
func (h *CompactSessionsHandler) Handle(ctx context.Context, cmd CompactSessionsCommand) (*MaintenanceResult, error) {
	now := h.deps.Clock.Now()

	records, err := h.deps.Records.ListOversized(ctx, h.deps.SessionRetention, batchSize(cmd.BatchSize))
	if err != nil {
		return nil, err
	}

	res := &MaintenanceResult{Scanned: len(records)}
	for _, rec := range records {
		dropped := rec.Compact(h.deps.SessionRetention, now)
		if dropped == 0 {
			continue
		}
		if err := h.deps.Records.Save(ctx, rec); err != nil {
			res.Failed++
			h.log.Warn("failed to save compacted record", logger.RecordID(rec.ID), logger.Err(err))
			continue
		}
		res.Updated++
		res.Affected += dropped
	}

	if res.Updated > 0 {
		h.log.Info("sessions compacted",
			logger.Int("records", res.Updated),
			logger.Int("sessions", res.Affected))
	}
	return res, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Abandoned sessions
// ─────────────────────────────────────────────────────────────────────────────

// CloseAbandonedSessionsCommand closes sessions open longer than MaxAge.
type CloseAbandonedSessionsCommand struct {
	MaxAge    time.Duration
	BatchSize int
}

// CloseAbandonedSessionsHandler handles the CloseAbandonedSessionsCommand.
type CloseAbandonedSessionsHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewCloseAbandonedSessionsHandler creates a new CloseAbandonedSessionsHandler.
func NewCloseAbandonedSessionsHandler(deps Deps) *CloseAbandonedSessionsHandler {
	deps = deps.withDefaults()
	return &CloseAbandonedSessionsHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("command"), logger.Operation("close_abandoned_sessions")),
	}
}

// Handle closes one batch. The watch length credited to a closed session is
// the lesson duration, or one hour when the catalogue does not know it.
func (h *CloseAbandonedSessionsHandler) Handle(ctx context.Context, cmd CloseAbandonedSessionsCommand) (*MaintenanceResult, error) {
	now := h.deps.Clock.Now()
	maxAge := cmd.MaxAge
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}

	records, err := h.deps.Records.ListAbandoned(ctx, now.Add(-maxAge), batchSize(cmd.BatchSize))
	if err != nil {
		return nil, err
	}
	res := &MaintenanceResult{Scanned: len(records)}
	if len(records) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.LessonID)
	}
	lessons, err := h.deps.Lessons.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		watchLength := progress.DefaultAbandonedWatchLength
		if l, ok := lessons[rec.LessonID]; ok && l.HasDuration() {
			watchLength = time.Duration(l.Duration) * time.Second
		}
		if !rec.CloseAbandoned(maxAge, watchLength, now) {
			continue
		}
		if err := h.deps.Records.Save(ctx, rec); err != nil {
			res.Failed++
			h.log.Warn("failed to save closed session", logger.RecordID(rec.ID), logger.Err(err))
			continue
		}
		res.Updated++
		res.Affected++
	}

	if res.Updated > 0 {
		h.log.Info("abandoned sessions closed", logger.Int("records", res.Updated))
	}
	return res, nil
}

func batchSize(n int) int {
	if n <= 0 {
		return 200
	}
	return n
}
