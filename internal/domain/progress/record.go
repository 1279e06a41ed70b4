package progress

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/kidlearn/learning-hub/internal/domain/reward"
	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS & CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// Status - состояние записи прогресса.
type Status string

const (
	// StatusNotStarted - запись создана, просмотра ещё не было.
	StatusNotStarted Status = "not_started"
	// StatusInProgress - урок начат.
	StatusInProgress Status = "in_progress"
	// StatusCompleted - урок завершён (конечное состояние для завершения).
	StatusCompleted Status = "completed"
)

// IsValid проверяет статус.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

const (
	// CompletionThreshold - процент просмотра, при котором урок считается завершённым.
	CompletionThreshold = 80

	// MaxNotesLength - максимальная длина заметок в символах.
	MaxNotesLength = 1000

	// DefaultSessionRetention - сколько последних сессий хранится подробно.
	DefaultSessionRetention = 50

	// DefaultAbandonedWatchLength - длина брошенной сессии, если длительность урока неизвестна.
	DefaultAbandonedWatchLength = time.Hour
)

// Поля записи, которые меняются вне просмотра.
const (
	FieldRating     = "rating"
	FieldBookmark   = "bookmark"
	FieldEngagement = "engagement"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// LastWatch - последняя известная позиция плеера.
type LastWatch struct {
	Position  float64   `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressResult - результат RecordProgress.
type ProgressResult struct {
	Completed bool `json:"completed"`
	FirstTime bool `json:"first_time"`
}

// SessionHandle описывает открытую сессию для вызывающего.
type SessionHandle struct {
	RecordID      string    `json:"record_id"`
	SessionIndex  int       `json:"session_index"`
	StartTime     time.Time `json:"start_time"`
	StartPosition float64   `json:"start_position"`
	Attempts      int       `json:"attempts"`
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATE: RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record - прогресс одного пользователя по одному уроку.
type Record struct {
	ID       string
	UserID   string
	LessonID string

	Status               Status
	WatchTime            float64 // секунды, не убывает
	CompletionPercentage int     // 0..100
	IsCompleted          bool

	StartedAt   time.Time
	CompletedAt time.Time
	LastWatch   LastWatch

	Sessions         Sessions
	ArchivedSessions int // сессии, свёрнутые при уплотнении
	TimeSpent        int // секунды, сумма длительностей закрытых сессий

	Rating       int // 0 - не оценено
	PointsEarned int
	Attempts     int
	StreakCount  int

	Bookmarked   bool
	BookmarkedAt time.Time

	Achievements reward.Achievements
	Engagement   reward.Engagement
	Notes        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord создаёт пустую запись для пары (пользователь, урок).
func NewRecord(id, userID, lessonID string, now time.Time) (*Record, error) {
	if id == "" || userID == "" || lessonID == "" {
		return nil, shared.Invalid("progress", "NewRecord", "id, user id and lesson id are required")
	}
	return &Record{
		ID:        id,
		UserID:    userID,
		LessonID:  lessonID,
		Status:    StatusNotStarted,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Watch sessions
// ─────────────────────────────────────────────────────────────────────────────

// StartSession открывает новую сессию просмотра.
// Возвращает ErrSessionAlreadyOpen, если предыдущая сессия не закрыта.
func (r *Record) StartSession(startPosition float64, now time.Time) (SessionHandle, error) {
	if r.Sessions.HasOpen() {
		return SessionHandle{}, shared.ErrSessionAlreadyOpen
	}
	if startPosition < 0 {
		return SessionHandle{}, shared.Invalid("progress", "StartSession", "start position cannot be negative")
	}

	s := r.Sessions.start(startPosition, now)
	if r.Status == StatusNotStarted {
		r.Status = StatusInProgress
		r.StartedAt = now
	}
	r.touch(now)

	return SessionHandle{
		RecordID:      r.ID,
		SessionIndex:  r.ArchivedSessions + len(r.Sessions) - 1,
		StartTime:     s.StartTime,
		StartPosition: s.StartPosition,
		Attempts:      r.Attempts,
	}, nil
}

// EndSession закрывает открытую сессию. Если открытой сессии нет,
// ничего не меняет и возвращает false.
func (r *Record) EndSession(endPosition float64, completed bool, now time.Time) (WatchSession, bool) {
	open, ok := r.Sessions.Open()
	if !ok {
		return WatchSession{}, false
	}

	r.TimeSpent += open.close(endPosition, completed, now)
	r.LastWatch = LastWatch{Position: endPosition, Timestamp: now}
	r.touch(now)
	return *open, true
}

// CloseAbandoned закрывает сессию, открытую дольше maxAge. Сессия
// закрывается в момент start + watchLength и не считается завершённой.
func (r *Record) CloseAbandoned(maxAge, watchLength time.Duration, now time.Time) bool {
	open, ok := r.Sessions.Open()
	if !ok || now.Sub(open.StartTime) < maxAge {
		return false
	}
	if watchLength <= 0 {
		watchLength = DefaultAbandonedWatchLength
	}

	closeAt := open.StartTime.Add(watchLength)
	if closeAt.After(now) {
		closeAt = now
	}

	position := open.StartPosition
	if r.LastWatch.Timestamp.After(open.StartTime) {
		position = r.LastWatch.Position
	}

	r.TimeSpent += open.close(position, false, closeAt)
	r.touch(now)
	return true
}

// Compact оставляет подробными не больше keep последних сессий.
// Их длительность уже учтена в TimeSpent, поэтому итог не меняется.
func (r *Record) Compact(keep int, now time.Time) int {
	dropped := r.Sessions.compact(keep)
	if dropped > 0 {
		r.ArchivedSessions += dropped
		r.touch(now)
	}
	return dropped
}

// TotalSessions - число сессий с учётом свёрнутых.
func (r *Record) TotalSessions() int {
	return r.ArchivedSessions + len(r.Sessions)
}

// OpenSessionStartedAt возвращает начало открытой сессии или нулевое время.
func (r *Record) OpenSessionStartedAt() time.Time {
	if open, ok := r.Sessions.Open(); ok {
		return open.StartTime
	}
	return time.Time{}
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

// RecordProgress учитывает время просмотра из плеера.
// Время просмотра никогда не уменьшается; завершение происходит один раз,
// при первом достижении порога CompletionThreshold.
func (r *Record) RecordProgress(observedWatchTime, totalDuration, currentPosition float64, now time.Time) (ProgressResult, error) {
	if observedWatchTime < 0 || math.IsNaN(observedWatchTime) || math.IsInf(observedWatchTime, 0) {
		return ProgressResult{}, shared.ErrNegativeWatchTime
	}
	if totalDuration <= 0 || math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) {
		return ProgressResult{}, shared.ErrNonPositiveDuration
	}

	if observedWatchTime > r.WatchTime {
		r.WatchTime = observedWatchTime
	}

	r.CompletionPercentage = completionPercentage(r.WatchTime, totalDuration)
	percentage := r.CompletionPercentage

	if percentage > 0 && r.Status == StatusNotStarted {
		r.Status = StatusInProgress
		r.StartedAt = now
	}

	r.LastWatch = LastWatch{Position: currentPosition, Timestamp: now}
	r.touch(now)

	if percentage >= CompletionThreshold && !r.IsCompleted {
		r.IsCompleted = true
		r.Status = StatusCompleted
		r.CompletedAt = now
		r.Achievements.Add(reward.LessonCompleted, reward.AchievementCompletion, now)
		return ProgressResult{Completed: true, FirstTime: true}, nil
	}

	return ProgressResult{Completed: false}, nil
}

// AwardPoints фиксирует очки, начисленные за завершение.
func (r *Record) AwardPoints(points int, now time.Time) {
	if points < 0 {
		points = 0
	}
	r.PointsEarned = points
	r.touch(now)
}

// PointsInput собирает входные данные калькулятора очков по записи.
func (r *Record) PointsInput(basePoints int, difficulty reward.Difficulty, lessonDuration int) reward.PointsInput {
	return reward.PointsInput{
		Completed:      r.IsCompleted,
		BasePoints:     basePoints,
		Difficulty:     difficulty,
		Attempts:       r.Attempts,
		TimeSpent:      r.TimeSpent,
		LessonDuration: lessonDuration,
		Rating:         r.Rating,
		Engagement:     r.Engagement,
		StreakCount:    r.StreakCount,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Feedback fields
// ─────────────────────────────────────────────────────────────────────────────

// Rate ставит оценку 1..5.
func (r *Record) Rate(value int, now time.Time) error {
	if value < 1 || value > 5 {
		return shared.ErrInvalidRating
	}
	r.Rating = value
	r.touch(now)
	return nil
}

// SetBookmark ставит или снимает закладку.
func (r *Record) SetBookmark(flag bool, now time.Time) {
	r.Bookmarked = flag
	if flag {
		r.BookmarkedAt = now
	} else {
		r.BookmarkedAt = time.Time{}
	}
	r.touch(now)
}

// UpdateEngagement сохраняет оценки вовлечённости и заметки.
func (r *Record) UpdateEngagement(e reward.Engagement, notes string, now time.Time) error {
	for _, level := range []int{e.AttentionLevel, e.EnjoymentLevel, e.ConfidenceLevel} {
		if level < 1 || level > 5 {
			return shared.ErrInvalidEngagement
		}
	}
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return shared.ErrNotesTooLong
	}
	r.Engagement = e
	r.Notes = notes
	r.touch(now)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *Record) touch(now time.Time) {
	r.UpdatedAt = now
}

// String для логов.
func (r *Record) String() string {
	return fmt.Sprintf("Record{user=%s, lesson=%s, status=%s, %d%%}",
		r.UserID, r.LessonID, r.Status, r.CompletionPercentage)
}

// Clone возвращает глубокую копию записи.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Sessions = r.Sessions.Clone()
	clone.Achievements = r.Achievements.Clone()
	return &clone
}

// completionPercentage ограничивает долю сотней до перевода в int:
// при огромном отношении (вплоть до +Inf) конвертация иначе переполняется.
func completionPercentage(watchTime, totalDuration float64) int {
	ratio := math.Round(watchTime / totalDuration * 100)
	if ratio > 100 || math.IsInf(ratio, 1) {
		return 100
	}
	if ratio < 0 {
		return 0
	}
	return int(ratio)
}
