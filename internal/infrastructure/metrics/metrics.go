// Package metrics holds the Prometheus instruments of the service and the
// event-bus subscriber that feeds the progress counters.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
)

var (
	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learninghub_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learninghub_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Progress engine
	ProgressEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_progress_events_total",
			Help: "Domain events published, by type",
		},
		[]string{"type"},
	)

	LessonsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_lessons_completed_total",
			Help: "Lesson completions, by difficulty",
		},
		[]string{"difficulty"},
	)

	PointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learninghub_points_awarded_total",
			Help: "Points paid to user balances",
		},
	)

	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_achievements_unlocked_total",
			Help: "Achievements unlocked, by scope",
		},
		[]string{"scope"},
	)

	// Statistics cache
	StatsCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learninghub_stats_cache_hits_total",
			Help: "Statistics reports served from cache",
		},
	)

	StatsCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "learninghub_stats_cache_misses_total",
			Help: "Statistics reports computed on demand",
		},
	)

	// Background jobs
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "learninghub_job_duration_seconds",
			Help:    "Duration of background job runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	JobRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_job_records_processed_total",
			Help: "Records changed by background jobs",
		},
		[]string{"job"},
	)

	JobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learninghub_job_errors_total",
			Help: "Failed background job runs",
		},
		[]string{"job"},
	)
)

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	APIRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordJob records one background job run.
func RecordJob(job string, duration time.Duration, processed int, err error) {
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		JobErrors.WithLabelValues(job).Inc()
		return
	}
	JobRecordsProcessed.WithLabelValues(job).Add(float64(processed))
}

// RecordStatsCache counts a statistics cache lookup.
func RecordStatsCache(hit bool) {
	if hit {
		StatsCacheHits.Inc()
		return
	}
	StatsCacheMisses.Inc()
}

// ObserveEvent is a shared.EventHandler that updates the progress counters.
func ObserveEvent(event shared.Event) error {
	ProgressEventsTotal.WithLabelValues(string(event.EventType())).Inc()

	payload := event.Payload()
	switch event.EventType() {
	case shared.EventLessonCompleted:
		difficulty, _ := payload["difficulty"].(string)
		if difficulty == "" {
			difficulty = "unknown"
		}
		LessonsCompletedTotal.WithLabelValues(difficulty).Inc()
	case shared.EventPointsAwarded:
		if points, ok := toFloat(payload["points"]); ok && points > 0 {
			PointsAwardedTotal.Add(points)
		}
	case shared.EventAchievementUnlocked:
		scope, _ := payload["scope"].(string)
		AchievementsUnlockedTotal.WithLabelValues(scope).Inc()
	}
	return nil
}

// toFloat accepts local (int) and replayed (float64) payload numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
