package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, append(fast(), WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	boom := errors.New("bad dsn")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	}, fast()...)

	assert.ErrorIs(t, err, boom)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	var retries []int
	err := Do(context.Background(), func(context.Context) error {
		return errors.New("down")
	}, append(fast(), WithMaxAttempts(3), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}))...)

	assert.EqualError(t, err, "down")
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_RetryIfStopsEarly(t *testing.T) {
	invalid := errors.New("invalid input")
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return invalid
	}, append(fast(), WithRetryIf(func(err error) bool { return !errors.Is(err, invalid) }))...)

	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, calls)
}

func TestBackoff_IsCapped(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(time.Second), WithJitter(0))
	assert.Equal(t, 100*time.Millisecond, r.backoff(1))
	assert.Equal(t, 400*time.Millisecond, r.backoff(3))
	assert.Equal(t, time.Second, r.backoff(10))
}
