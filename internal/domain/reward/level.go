package reward

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// PointsPerLevel - очков на один уровень.
	PointsPerLevel = 100
	// MaxLevel - максимальный уровень.
	MaxLevel = 10
)

// LevelFor вычисляет уровень: floor(points/100)+1, не выше MaxLevel.
func LevelFor(totalPoints int) int {
	if totalPoints < 0 {
		return 1
	}
	level := totalPoints/PointsPerLevel + 1
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// NextLevel возвращает уровень после начисления, не допуская понижения.
func NextLevel(current, totalPoints int) int {
	level := LevelFor(totalPoints)
	if level < current {
		return current
	}
	return level
}

// PointsToNextLevel возвращает, сколько очков осталось до следующего уровня.
// Для максимального уровня возвращает 0.
func PointsToNextLevel(totalPoints int) int {
	level := LevelFor(totalPoints)
	if level >= MaxLevel {
		return 0
	}
	return level*PointsPerLevel - totalPoints
}
