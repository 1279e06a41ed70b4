package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{899, 9},
		{900, 10},
		{5000, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.points), "points=%d", tt.points)
	}
}

func TestNextLevel_NeverDecreases(t *testing.T) {
	assert.Equal(t, 5, NextLevel(5, 0))
	assert.Equal(t, 3, NextLevel(1, 200))
}

func TestPointsToNextLevel(t *testing.T) {
	assert.Equal(t, 100, PointsToNextLevel(0))
	assert.Equal(t, 30, PointsToNextLevel(170))
	assert.Equal(t, 0, PointsToNextLevel(1200))
}
