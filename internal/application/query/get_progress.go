package query

import (
	"context"

	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS READ QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery - запись одной пары (пользователь, урок).
type GetProgressQuery struct {
	UserID   string
	LessonID string
}

// GetProgressHandler обрабатывает GetProgressQuery.
type GetProgressHandler struct {
	records progress.Repository
}

// NewGetProgressHandler создаёт обработчик.
func NewGetProgressHandler(records progress.Repository) *GetProgressHandler {
	return &GetProgressHandler{records: records}
}

// Handle возвращает представление записи или shared.ErrRecordNotFound.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressView, error) {
	if q.UserID == "" || q.LessonID == "" {
		return nil, shared.Invalid("progress", "Get", "user id and lesson id are required")
	}
	rec, err := h.records.Get(ctx, q.UserID, q.LessonID)
	if err != nil {
		return nil, err
	}
	view := NewProgressView(rec)
	return &view, nil
}

// ListBookmarksQuery - закладки пользователя.
type ListBookmarksQuery struct {
	UserID string
}

// ListBookmarksHandler обрабатывает ListBookmarksQuery.
type ListBookmarksHandler struct {
	records progress.Repository
}

// NewListBookmarksHandler создаёт обработчик.
func NewListBookmarksHandler(records progress.Repository) *ListBookmarksHandler {
	return &ListBookmarksHandler{records: records}
}

// Handle возвращает записи с закладкой, новые закладки первыми.
func (h *ListBookmarksHandler) Handle(ctx context.Context, q ListBookmarksQuery) ([]ProgressView, error) {
	if q.UserID == "" {
		return nil, shared.Invalid("progress", "ListBookmarks", "user id is required")
	}
	records, err := h.records.ListBookmarked(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]ProgressView, 0, len(records))
	for _, r := range records {
		views = append(views, NewProgressView(r))
	}
	return views, nil
}

// GetProfileQuery - профиль геймификации пользователя.
type GetProfileQuery struct {
	UserID string
}

// GetProfileHandler обрабатывает GetProfileQuery.
type GetProfileHandler struct {
	users user.Repository
}

// NewGetProfileHandler создаёт обработчик.
func NewGetProfileHandler(users user.Repository) *GetProfileHandler {
	return &GetProfileHandler{users: users}
}

// Handle возвращает профиль или shared.ErrUserNotFound.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*ProfileView, error) {
	if q.UserID == "" {
		return nil, shared.Invalid("user", "Get", "user id is required")
	}
	u, err := h.users.Get(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	view := NewProfileView(u)
	return &view, nil
}
