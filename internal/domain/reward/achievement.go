package reward

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// AchievementType определяет категорию достижения.
type AchievementType string

const (
	// AchievementCompletion - за завершение урока.
	AchievementCompletion AchievementType = "completion"
	// AchievementSpeed - за быстрое прохождение.
	AchievementSpeed AchievementType = "speed"
	// AchievementUnderstanding - за высокую оценку понимания.
	AchievementUnderstanding AchievementType = "understanding"
	// AchievementStreak - за серию дней подряд.
	AchievementStreak AchievementType = "streak"
	// AchievementEngagement - за вовлечённость ребёнка.
	AchievementEngagement AchievementType = "engagement"
)

// IsValid проверяет, что тип достижения известен.
func (t AchievementType) IsValid() bool {
	switch t {
	case AchievementCompletion, AchievementSpeed, AchievementUnderstanding,
		AchievementStreak, AchievementEngagement:
		return true
	default:
		return false
	}
}

// Имена достижений.
const (
	// Уровень записи прогресса.
	LessonCompleted = "Lesson Completed"

	// Уровень профиля пользователя.
	FirstLesson   = "First Lesson"
	SpeedyLearner = "Speedy Learner"
	SuperStar     = "Super Star"
	HappyLearner  = "Happy Learner"
	WeekWarrior   = "Week Warrior"
	MonthlyMaster = "Monthly Master"
)

// Scope определяет, кому принадлежит набор достижений.
type Scope string

const (
	ScopeRecord Scope = "record"
	ScopeUser   Scope = "user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT SET
// ══════════════════════════════════════════════════════════════════════════════

// Achievement - разблокированное достижение.
type Achievement struct {
	Name       string          `json:"name"`
	Type       AchievementType `json:"type"`
	UnlockedAt time.Time       `json:"unlocked_at"`
}

// Achievements - упорядоченный набор достижений, уникальный по имени.
// Один набор принадлежит ровно одной записи прогресса или одному профилю,
// поэтому собственной синхронизации не требует.
type Achievements []Achievement

// Add добавляет достижение, если достижения с таким именем ещё нет.
// Возвращает false без изменений для повторного имени.
func (a *Achievements) Add(name string, typ AchievementType, now time.Time) bool {
	if a.Has(name) {
		return false
	}
	*a = append(*a, Achievement{
		Name:       name,
		Type:       typ,
		UnlockedAt: now,
	})
	return true
}

// Has проверяет, разблокировано ли достижение.
func (a Achievements) Has(name string) bool {
	for _, ach := range a {
		if ach.Name == name {
			return true
		}
	}
	return false
}

// Names возвращает имена в порядке разблокировки.
func (a Achievements) Names() []string {
	names := make([]string, len(a))
	for i, ach := range a {
		names[i] = ach.Name
	}
	return names
}

// Clone возвращает независимую копию набора.
func (a Achievements) Clone() Achievements {
	if a == nil {
		return nil
	}
	out := make(Achievements, len(a))
	copy(out, a)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ПРАВИЛА ДОСТИЖЕНИЙ ПРОФИЛЯ
// ══════════════════════════════════════════════════════════════════════════════

// Unlock - достижение, которое следует разблокировать.
type Unlock struct {
	Name string
	Type AchievementType
}

// Milestone - порог серии дней.
type Milestone struct {
	Days int
	Name string
}

// StreakMilestones перечисляет пороги серии по возрастанию.
var StreakMilestones = []Milestone{
	{Days: 7, Name: WeekWarrior},
	{Days: 30, Name: MonthlyMaster},
}

// StreakUnlocks возвращает достижения, заработанные серией длиной days.
// Повторная разблокировка отсекается самим набором.
func StreakUnlocks(days int) []Unlock {
	var out []Unlock
	for _, m := range StreakMilestones {
		if days >= m.Days {
			out = append(out, Unlock{Name: m.Name, Type: AchievementStreak})
		}
	}
	return out
}

// CompletionUnlocks возвращает достижения профиля за завершение урока.
// "First Lesson" возвращается всегда: набор профиля оставит только первое.
func CompletionUnlocks(b PointsBreakdown, rating int) []Unlock {
	out := []Unlock{{Name: FirstLesson, Type: AchievementCompletion}}
	if b.SpeedBonus {
		out = append(out, Unlock{Name: SpeedyLearner, Type: AchievementSpeed})
	}
	if rating >= 5 {
		out = append(out, Unlock{Name: SuperStar, Type: AchievementUnderstanding})
	}
	if b.EngagementBonus {
		out = append(out, Unlock{Name: HappyLearner, Type: AchievementEngagement})
	}
	return out
}
