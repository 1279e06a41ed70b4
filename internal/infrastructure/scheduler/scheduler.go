// Package scheduler runs background maintenance jobs for the learning hub.
// Jobs are registered with a fixed interval and executed by gocron in
// singleton mode, so a slow run never overlaps with the next tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Description returns a human-readable description of the job.
	Description() string

	// Run executes the job and reports how many records it changed.
	// The context is cancelled when the scheduler is stopping or the run times out.
	Run(ctx context.Context) (int, error)
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Processed   int
	Success     bool
	Error       error
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name        string
	Description string
	Interval    time.Duration
	RunCount    int64
	FailCount   int64
	LastRun     time.Time
	NextRun     time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *logger.Logger

	// Timezone for gocron (default: UTC).
	Timezone *time.Location

	// JobTimeout bounds a single run (default: 5m).
	JobTimeout time.Duration

	// MaxHistorySize is the maximum number of job results to keep.
	MaxHistorySize int

	// Retrier retries a failed run; nil uses retry.JobRetrier with Transient.
	Retrier *retry.Retrier
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:       time.UTC,
		JobTimeout:     5 * time.Minute,
		MaxHistorySize: 100,
	}
}

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.RWMutex

	cron    *gocron.Scheduler
	logger  *logger.Logger
	timeout time.Duration
	retrier *retry.Retrier

	jobs       map[string]*scheduledJob
	history    []JobResult
	maxHistory int

	ctx     context.Context
	cancel  context.CancelFunc
	running bool

	onJobComplete func(result JobResult)
}

type scheduledJob struct {
	job       Job
	interval  time.Duration
	entry     *gocron.Job
	lastRun   time.Time
	runCount  int64
	failCount int64
}

// New creates a new Scheduler with the given configuration.
func New(cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.Timezone == nil {
		cfg.Timezone = def.Timezone
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxHistorySize <= 0 {
		cfg.MaxHistorySize = def.MaxHistorySize
	}
	if cfg.Retrier == nil {
		cfg.Retrier = retry.JobRetrier(Transient)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	cron := gocron.NewScheduler(cfg.Timezone)
	cron.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron,
		logger:     cfg.Logger.With(logger.Component("scheduler")),
		timeout:    cfg.JobTimeout,
		retrier:    cfg.Retrier,
		jobs:       make(map[string]*scheduledJob),
		maxHistory: cfg.MaxHistorySize,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnJobComplete sets a callback invoked after every run, successful or not.
func (s *Scheduler) OnJobComplete(fn func(result JobResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJobComplete = fn
}

// ─────────────────────────────────────────────────────────────────────────────
// Registration
// ─────────────────────────────────────────────────────────────────────────────

// Register adds a job that runs every interval.
func (s *Scheduler) Register(job Job, every time.Duration) error {
	if job == nil {
		return ErrNilJob
	}
	if every <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, every)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	sj := &scheduledJob{job: job, interval: every}
	entry, err := s.cron.Every(every).Tag(name).Do(func() {
		s.execute(s.ctx, sj)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	sj.entry = entry
	s.jobs[name] = sj

	s.logger.Info("job registered",
		logger.String("job", name),
		logger.String("description", job.Description()),
		logger.Duration("interval", every),
	)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.cron.StartAsync()

	s.logger.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels in-flight runs and waits for gocron to stop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.cron.Stop()

	s.logger.Info("scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ─────────────────────────────────────────────────────────────────────────────
// Execution
// ─────────────────────────────────────────────────────────────────────────────

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.RLock()
	sj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, sj), nil
}

func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob) JobResult {
	name := sj.job.Name()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := JobResult{JobName: name, StartedAt: time.Now()}
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		n, err := sj.job.Run(ctx)
		result.Processed = n
		return err
	})
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)
	result.Success = err == nil
	result.Error = err

	s.mu.Lock()
	sj.lastRun = result.StartedAt
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	s.history = append(s.history, result)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	hook := s.onJobComplete
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			logger.String("job", name),
			logger.Duration("duration", result.Duration),
			logger.Err(err),
		)
	} else {
		s.logger.Info("job completed",
			logger.String("job", name),
			logger.Int("processed", result.Processed),
			logger.Duration("duration", result.Duration),
		)
	}

	if hook != nil {
		hook(result)
	}
	return result
}

// ─────────────────────────────────────────────────────────────────────────────
// Introspection
// ─────────────────────────────────────────────────────────────────────────────

// ListJobs returns registered jobs sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, sj := range s.jobs {
		info := JobInfo{
			Name:        name,
			Description: sj.job.Description(),
			Interval:    sj.interval,
			RunCount:    sj.runCount,
			FailCount:   sj.failCount,
			LastRun:     sj.lastRun,
		}
		if s.running && sj.entry != nil {
			info.NextRun = sj.entry.NextRun()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// History returns up to limit most recent results, newest first.
func (s *Scheduler) History(limit int) []JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]JobResult, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Transient reports whether a failed run may succeed on another attempt.
// Domain errors describe the data, not the connection, so they are final.
func Transient(err error) bool {
	return !(shared.IsInvalidInput(err) || shared.IsNotFound(err) ||
		shared.IsConflict(err) || shared.IsInvalidState(err) || shared.IsForbidden(err))
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrInvalidInterval is returned for a non-positive interval.
	ErrInvalidInterval = errors.New("job interval must be positive")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = errors.New("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerAlreadyRunning is returned when Start is called on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when Stop is called on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
