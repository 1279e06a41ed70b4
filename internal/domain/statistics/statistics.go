// Package statistics aggregates a user's progress records into the
// summary shown on the learner dashboard. Everything here is a pure
// function over a snapshot; loading the snapshot is the caller's job.
package statistics

import (
	"math"
	"time"

	"github.com/kidlearn/learning-hub/internal/domain/lesson"
	"github.com/kidlearn/learning-hub/internal/domain/progress"
	"github.com/kidlearn/learning-hub/internal/domain/reward"
)

// WeekDays is the length of the weekly series.
const WeekDays = 7

// DateLayout is the ISO calendar date used in the weekly series.
const DateLayout = "2006-01-02"

// Report is the per-user statistics summary.
type Report struct {
	TotalLessons           int             `json:"totalLessons"`
	CompletedLessons       int             `json:"completedLessons"`
	InProgressLessons      int             `json:"inProgressLessons"`
	CompletionRate         int             `json:"completionRate"`
	TotalWatchTime         int             `json:"totalWatchTime"` // minutes
	AverageRating          float64         `json:"averageRating"`
	CategoryStats          []CategoryStat  `json:"categoryStats"`
	DifficultyStats        DifficultyStats `json:"difficultyStats"`
	WeeklyProgress         []DayProgress   `json:"weeklyProgress"`
	TotalPointsFromLessons int             `json:"totalPointsFromLessons"`
}

// CategoryStat accumulates records per lesson category.
type CategoryStat struct {
	Category  string `json:"category"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Points    int    `json:"points"`
}

// DifficultyStats is the histogram of completed lessons per difficulty.
type DifficultyStats struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

func (d *DifficultyStats) inc(diff reward.Difficulty) {
	switch diff {
	case reward.DifficultyEasy:
		d.Easy++
	case reward.DifficultyMedium:
		d.Medium++
	case reward.DifficultyHard:
		d.Hard++
	}
}

// DayProgress is one entry of the weekly series.
type DayProgress struct {
	Date             string `json:"date"`
	LessonsCompleted int    `json:"lessonsCompleted"`
	PointsEarned     int    `json:"pointsEarned"`
}

// Input is the snapshot the report is computed from.
type Input struct {
	Records []*progress.Record
	// Lessons resolves record lesson ids; records with unknown lessons are
	// skipped in category and difficulty stats.
	Lessons map[string]*lesson.Lesson
	// ActiveLessons is the number of active lessons in the catalogue.
	ActiveLessons int
	Now           time.Time
	// Location defines calendar days for the weekly series. Defaults to UTC.
	Location *time.Location
}

// Compute builds the report.
func Compute(in Input) Report {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	r := Report{
		TotalLessons:   in.ActiveLessons,
		CategoryStats:  []CategoryStat{},
		WeeklyProgress: weekSkeleton(in.Now, loc),
	}

	var (
		watchSeconds float64
		ratingSum    int
		ratingCount  int
		categoryIdx  = make(map[string]int)
		dayIdx       = make(map[string]int, WeekDays)
	)
	for i, d := range r.WeeklyProgress {
		dayIdx[d.Date] = i
	}

	for _, rec := range in.Records {
		if rec == nil {
			continue
		}
		if rec.IsCompleted {
			r.CompletedLessons++
		}
		if rec.Status == progress.StatusInProgress {
			r.InProgressLessons++
		}
		watchSeconds += rec.WatchTime
		if rec.Rating > 0 {
			ratingSum += rec.Rating
			ratingCount++
		}
		r.TotalPointsFromLessons += rec.PointsEarned

		if rec.IsCompleted && !rec.CompletedAt.IsZero() {
			if i, ok := dayIdx[rec.CompletedAt.In(loc).Format(DateLayout)]; ok {
				r.WeeklyProgress[i].LessonsCompleted++
				r.WeeklyProgress[i].PointsEarned += rec.PointsEarned
			}
		}

		l, ok := in.Lessons[rec.LessonID]
		if !ok || l == nil {
			continue
		}
		idx, seen := categoryIdx[l.Category]
		if !seen {
			idx = len(r.CategoryStats)
			categoryIdx[l.Category] = idx
			r.CategoryStats = append(r.CategoryStats, CategoryStat{Category: l.Category})
		}
		r.CategoryStats[idx].Total++
		if rec.IsCompleted {
			r.CategoryStats[idx].Completed++
			r.CategoryStats[idx].Points += rec.PointsEarned
			r.DifficultyStats.inc(l.Difficulty)
		}
	}

	if r.TotalLessons > 0 {
		r.CompletionRate = int(math.Round(float64(r.CompletedLessons) / float64(r.TotalLessons) * 100))
	}
	r.TotalWatchTime = int(math.Round(watchSeconds / 60))
	if ratingCount > 0 {
		r.AverageRating = math.Round(float64(ratingSum)/float64(ratingCount)*10) / 10
	}

	return r
}

// weekSkeleton returns seven zero-filled days ending today, oldest first.
func weekSkeleton(now time.Time, loc *time.Location) []DayProgress {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := make([]DayProgress, WeekDays)
	for i := 0; i < WeekDays; i++ {
		day := today.AddDate(0, 0, i-(WeekDays-1))
		days[i] = DayProgress{Date: day.Format(DateLayout)}
	}
	return days
}
