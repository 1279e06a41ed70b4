package reward

import (
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIFFICULTY
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty - уровень сложности урока.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties перечисляет уровни в порядке возрастания сложности.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// IsValid проверяет уровень сложности.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Multiplier возвращает множитель очков. Неизвестная сложность считается лёгкой.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case DifficultyMedium:
		return 1.2
	case DifficultyHard:
		return 1.5
	default:
		return 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// POINTS CALCULATION
// ══════════════════════════════════════════════════════════════════════════════

// Пороги бонусов.
const (
	firstAttemptBonusRate = 0.25
	speedBonusRate        = 0.15
	streakBonusRate       = 0.1

	speedDurationFactor = 2

	topRatingBonus  = 10
	goodRatingBonus = 5
	engagementBonus = 5

	streakBonusDays = 7
)

// Engagement - оценки вовлечённости ребёнка, каждая 1..5 (0 - не задана).
type Engagement struct {
	AttentionLevel  int `json:"attention_level"`
	EnjoymentLevel  int `json:"enjoyment_level"`
	ConfidenceLevel int `json:"confidence_level"`
}

// PointsInput - всё, что нужно для подсчёта очков за урок.
type PointsInput struct {
	Completed      bool
	BasePoints     int
	Difficulty     Difficulty
	Attempts       int
	TimeSpent      int // секунды
	LessonDuration int // секунды, 0 - неизвестна
	Rating         int // 0 - нет оценки
	Engagement     Engagement
	StreakCount    int
}

// PointsBreakdown показывает, какие бонусы были начислены.
type PointsBreakdown struct {
	Total           int
	FirstAttempt    bool
	SpeedBonus      bool
	RatingBonus     int
	EngagementBonus bool
	StreakBonus     bool
}

// CalculatePoints возвращает очки за урок. Чистая функция.
func CalculatePoints(in PointsInput) int {
	return Calculate(in).Total
}

// Calculate считает очки с разбивкой по бонусам.
// Процентные бонусы округляются вниз, итог округляется один раз в конце.
func Calculate(in PointsInput) PointsBreakdown {
	var b PointsBreakdown
	if !in.Completed {
		return b
	}

	base := float64(in.BasePoints)
	points := base * in.Difficulty.Multiplier()

	if in.Attempts == 1 {
		points += math.Floor(base * firstAttemptBonusRate)
		b.FirstAttempt = true
	}

	if in.LessonDuration > 0 && in.TimeSpent < in.LessonDuration*speedDurationFactor {
		points += math.Floor(base * speedBonusRate)
		b.SpeedBonus = true
	}

	switch {
	case in.Rating >= 5:
		b.RatingBonus = topRatingBonus
	case in.Rating >= 4:
		b.RatingBonus = goodRatingBonus
	}
	points += float64(b.RatingBonus)

	if in.Engagement.EnjoymentLevel >= 4 && in.Engagement.AttentionLevel >= 4 {
		points += engagementBonus
		b.EngagementBonus = true
	}

	if in.StreakCount >= streakBonusDays {
		points += math.Floor(base * streakBonusRate)
		b.StreakBonus = true
	}

	b.Total = int(math.Round(points))
	return b
}
