// Package retry re-runs operations with exponential backoff and jitter.
// It covers two cases: waiting for Postgres or Redis to come up at
// startup, and transient failures of a background job run.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy describes how often and how long to retry.
type Policy struct {
	// MaxAttempts includes the first attempt. Default: 3
	MaxAttempts int

	// InitialDelay before the first retry, doubled after each attempt. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps a single wait. Default: 30s
	MaxDelay time.Duration

	// Jitter spreads each wait by +/- this fraction. Default: 0.1
	Jitter float64

	// RetryIf decides whether an error is worth another attempt.
	// Permanent errors are never retried regardless of RetryIf.
	RetryIf func(error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Option adjusts a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the wait before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.InitialDelay = d
		}
	}
}

// WithMaxDelay caps a single wait.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.MaxDelay = d
		}
	}
}

// WithJitter sets the jitter fraction, 0 disables it.
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j <= 1 {
			p.Jitter = j
		}
	}
}

// WithRetryIf restricts retries to errors accepted by fn.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

// WithOnRetry registers a callback run before each wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier runs operations under one Policy. It is safe for concurrent use.
type Retrier struct {
	policy Policy
}

// New creates a Retrier from the defaults adjusted by opts.
func New(opts ...Option) *Retrier {
	p := Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Jitter:       0.1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{policy: p}
}

// Do runs op until it succeeds, the error is not retryable, the attempts
// run out or ctx is done. The last operation error wins over ctx.Err().
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err):
			return errors.Unwrap(err)
		case r.policy.RetryIf != nil && !r.policy.RetryIf(err):
			return err
		}
		last = err

		if attempt >= r.policy.MaxAttempts {
			return last
		}

		wait := r.backoff(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
	}
}

// backoff is InitialDelay * 2^(attempt-1), capped at MaxDelay and jittered.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := math.Min(
		float64(r.policy.InitialDelay)*math.Pow(2, float64(attempt-1)),
		float64(r.policy.MaxDelay),
	)
	if r.policy.Jitter > 0 {
		d *= 1 + r.policy.Jitter*(rand.Float64()*2-1)
	}
	return time.Duration(math.Max(d, 0))
}

// Do runs op with a one-off Retrier.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

// StartupRetrier waits for a store or cache that may come up after the
// service, e.g. Postgres or Redis in docker-compose.
func StartupRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(8),
		WithInitialDelay(250*time.Millisecond),
		WithMaxDelay(5*time.Second),
		WithJitter(0.2),
		WithOnRetry(onRetry),
	)
}

// JobRetrier retries a single background job run. retryIf may be nil.
func JobRetrier(retryIf func(error) bool) *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0.05),
		WithRetryIf(retryIf),
	)
}
