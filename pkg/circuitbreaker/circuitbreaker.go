// Package circuitbreaker stops calling an optional dependency after
// repeated failures and probes it again after a cool-down.
// It guards the Redis statistics cache so a failing Redis costs one fast
// error instead of a dial timeout per request.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed passes calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down ends.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the dependency while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a Breaker.
type Config struct {
	// FailureThreshold consecutive failures open the breaker. Default: 5
	FailureThreshold int

	// CoolDown is how long the breaker stays open. Default: 30s
	CoolDown time.Duration

	// HalfOpenProbes successful probes close the breaker again. Default: 1
	HalfOpenProbes int

	// IsFailure decides which errors count. Default: every non-nil error
	// except context cancellation.
	IsFailure func(error) bool

	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(name string, from, to State)
}

// Option configures a Breaker.
type Option func(*Config)

// WithFailureThreshold sets the consecutive failures that open the breaker.
func WithFailureThreshold(n int) Option {
	return func(c *Config) { c.FailureThreshold = n }
}

// WithCoolDown sets how long the breaker stays open.
func WithCoolDown(d time.Duration) Option {
	return func(c *Config) { c.CoolDown = d }
}

// WithHalfOpenProbes sets the successes needed to close from half-open.
func WithHalfOpenProbes(n int) Option {
	return func(c *Config) { c.HalfOpenProbes = n }
}

// WithOnStateChange registers a transition callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
}

// New creates a closed Breaker.
func New(name string, opts ...Option) *Breaker {
	cfg := Config{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
		HalfOpenProbes:   1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving open to half-open once the
// cool-down has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.CoolDown {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	b.release(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	var from, to State
	changed := false

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.CoolDown {
			b.mu.Unlock()
			return ErrOpen
		}
		from, to, changed = b.state, StateHalfOpen, true
		b.state = StateHalfOpen
		b.successes = 0
		b.inFlight = 0
		fallthrough
	case StateHalfOpen:
		if b.inFlight >= b.cfg.HalfOpenProbes {
			b.mu.Unlock()
			b.notify(changed, from, to)
			return ErrOpen
		}
		b.inFlight++
	}
	b.mu.Unlock()
	b.notify(changed, from, to)
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	from := b.state
	failed := b.cfg.IsFailure(err)

	switch b.state {
	case StateClosed:
		if !failed {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		b.inFlight--
		if failed {
			b.open()
			break
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenProbes {
			b.state = StateClosed
			b.failures = 0
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from != to, from, to)
}

// open must be called with mu held.
func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
	b.inFlight = 0
}

func (b *Breaker) notify(changed bool, from, to State) {
	if changed && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.inFlight = 0
	b.mu.Unlock()
	b.notify(from != StateClosed, from, StateClosed)
}

// CacheBreaker is tuned for an optional cache: trip fast, probe often.
func CacheBreaker(name string, onStateChange func(name string, from, to State)) *Breaker {
	return New(name,
		WithFailureThreshold(3),
		WithCoolDown(10*time.Second),
		WithHalfOpenProbes(2),
		WithOnStateChange(onStateChange),
	)
}
