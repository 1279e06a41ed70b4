package progress

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// WATCH SESSION
// ══════════════════════════════════════════════════════════════════════════════

// WatchSession - один непрерывный интервал просмотра.
type WatchSession struct {
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Duration      int        `json:"duration,omitempty"` // целые секунды, задаётся при закрытии
	StartPosition float64    `json:"start_position"`
	EndPosition   float64    `json:"end_position"`
	Completed     bool       `json:"completed"`
}

// IsOpen возвращает true, пока сессия не закрыта.
func (s WatchSession) IsOpen() bool {
	return s.EndTime == nil
}

// close закрывает сессию и возвращает её длительность в целых секундах.
func (s *WatchSession) close(endPosition float64, completed bool, at time.Time) int {
	end := at
	s.EndTime = &end
	s.EndPosition = endPosition
	s.Completed = completed

	duration := int(at.Sub(s.StartTime) / time.Second)
	if duration < 0 {
		duration = 0
	}
	s.Duration = duration
	return duration
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// Sessions - упорядоченный список сессий записи. Только добавление,
// открытой может быть не больше одной (последняя).
type Sessions []WatchSession

// Open возвращает открытую сессию, если она есть.
func (ss Sessions) Open() (*WatchSession, bool) {
	if len(ss) == 0 {
		return nil, false
	}
	last := &ss[len(ss)-1]
	if !last.IsOpen() {
		return nil, false
	}
	return last, true
}

// HasOpen проверяет наличие открытой сессии.
func (ss Sessions) HasOpen() bool {
	_, ok := ss.Open()
	return ok
}

// start добавляет открытую сессию. Вызывающий проверяет, что открытой ещё нет.
func (ss *Sessions) start(startPosition float64, at time.Time) WatchSession {
	s := WatchSession{
		StartTime:     at,
		StartPosition: startPosition,
	}
	*ss = append(*ss, s)
	return s
}

// compact оставляет не больше keep последних сессий. Открытая сессия
// никогда не удаляется. Возвращает число убранных сессий.
func (ss *Sessions) compact(keep int) int {
	if keep < 1 {
		keep = 1
	}
	n := len(*ss)
	if n <= keep {
		return 0
	}
	drop := n - keep
	out := make(Sessions, keep)
	copy(out, (*ss)[drop:])
	*ss = out
	return drop
}

// Clone возвращает глубокую копию списка.
func (ss Sessions) Clone() Sessions {
	if ss == nil {
		return nil
	}
	out := make(Sessions, len(ss))
	for i, s := range ss {
		out[i] = s
		if s.EndTime != nil {
			end := *s.EndTime
			out[i].EndTime = &end
		}
	}
	return out
}
