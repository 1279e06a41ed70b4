package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Реализации находятся в infrastructure/persistence (postgres, sqlite).
// ══════════════════════════════════════════════════════════════════════════════

// Repository хранит записи прогресса. Запись сохраняется целиком,
// последняя успешная запись побеждает.
type Repository interface {
	// Create создаёт запись.
	// Возвращает ошибку вида shared.ErrConflict, если пара (user, lesson) уже существует.
	Create(ctx context.Context, record *Record) error

	// Get возвращает запись пары.
	// Возвращает shared.ErrRecordNotFound, если записи нет.
	Get(ctx context.Context, userID, lessonID string) (*Record, error)

	// Save сохраняет агрегат целиком.
	// Возвращает shared.ErrRecordNotFound, если записи нет.
	Save(ctx context.Context, record *Record) error

	// ListByUser возвращает все записи пользователя.
	ListByUser(ctx context.Context, userID string) ([]*Record, error)

	// ListBookmarked возвращает записи с закладкой, новые закладки первыми.
	ListBookmarked(ctx context.Context, userID string) ([]*Record, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Maintenance
	// ─────────────────────────────────────────────────────────────────────────

	// ListOversized возвращает записи, у которых подробных сессий больше maxSessions.
	ListOversized(ctx context.Context, maxSessions, limit int) ([]*Record, error)

	// ListAbandoned возвращает записи с сессией, открытой раньше openedBefore.
	ListAbandoned(ctx context.Context, openedBefore time.Time, limit int) ([]*Record, error)
}
