package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidlearn/learning-hub/internal/domain/shared"
	"github.com/kidlearn/learning-hub/pkg/logger"
	"github.com/kidlearn/learning-hub/pkg/retry"
)

type stubJob struct {
	name  string
	calls atomic.Int32
	run   func(call int32) (int, error)
}

func (j *stubJob) Name() string        { return j.name }
func (j *stubJob) Description() string { return "stub " + j.name }
func (j *stubJob) Run(context.Context) (int, error) {
	return j.run(j.calls.Add(1))
}

func newTestScheduler() *Scheduler {
	return New(Config{
		Logger:  logger.Nop(),
		Retrier: retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0)),
	})
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "a", run: func(int32) (int, error) { return 0, nil }}

	require.NoError(t, s.Register(job, time.Minute))
	assert.ErrorIs(t, s.Register(job, time.Minute), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, time.Minute), ErrNilJob)
	assert.ErrorIs(t, s.Register(&stubJob{name: "b"}, 0), ErrInvalidInterval)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, time.Minute, jobs[0].Interval)
}

func TestScheduler_RunNowRetriesTransientFailures(t *testing.T) {
	s := newTestScheduler()

	var completed []JobResult
	s.OnJobComplete(func(r JobResult) { completed = append(completed, r) })

	job := &stubJob{name: "flaky", run: func(call int32) (int, error) {
		if call == 1 {
			return 0, errors.New("connection reset")
		}
		return 7, nil
	}}
	require.NoError(t, s.Register(job, time.Hour))

	res, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 7, res.Processed)
	assert.EqualValues(t, 2, job.calls.Load())

	require.Len(t, completed, 1)
	assert.Equal(t, "flaky", completed[0].JobName)
}

func TestScheduler_PermanentFailureIsNotRetried(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "broken", run: func(int32) (int, error) {
		return 0, retry.Permanent(assert.AnError)
	}}
	require.NoError(t, s.Register(job, time.Hour))

	res, err := s.RunNow(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, assert.AnError)
	assert.EqualValues(t, 1, job.calls.Load())

	info := s.ListJobs()[0]
	assert.EqualValues(t, 1, info.RunCount)
	assert.EqualValues(t, 1, info.FailCount)
}

func TestScheduler_RunNowUnknownJob(t *testing.T) {
	_, err := newTestScheduler().RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_History(t *testing.T) {
	s := New(Config{Logger: logger.Nop(), MaxHistorySize: 2})
	job := &stubJob{name: "count", run: func(call int32) (int, error) { return int(call), nil }}
	require.NoError(t, s.Register(job, time.Hour))

	for i := 0; i < 3; i++ {
		_, err := s.RunNow(context.Background(), "count")
		require.NoError(t, err)
	}

	history := s.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Processed)
	assert.Equal(t, 2, history[1].Processed)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler()
	ran := make(chan struct{}, 1)
	job := &stubJob{name: "tick", run: func(int32) (int, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 0, nil
	}}
	require.NoError(t, s.Register(job, time.Hour))

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(errors.New("connection refused")))
	assert.False(t, Transient(shared.ErrRecordNotFound))
	assert.False(t, Transient(shared.ErrInvalidRating))
	assert.False(t, Transient(shared.ErrSessionAlreadyOpen))
}
