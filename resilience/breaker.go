package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// State is the state of a Breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Breaker stops calling a failing collaborator. After a run of consecutive
// failures it opens and rejects calls with ErrCircuitOpen until the cooldown
// passes; then a single trial call decides whether it closes again.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// BreakerOption configures a Breaker.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	onChange func(from, to State)
	logger   *slog.Logger
}

// WithStateListener calls fn on every state transition.
func WithStateListener(fn func(from, to State)) BreakerOption {
	return func(c *breakerConfig) {
		c.onChange = fn
	}
}

// WithBreakerLogger sets a custom logger.
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(c *breakerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBreaker returns a closed breaker that opens after failures consecutive
// failures and stays open for cooldown.
func NewBreaker(name string, failures uint32, cooldown time.Duration, opts ...BreakerOption) *Breaker {
	cfg := breakerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("component", "breaker", "breaker", name)
	failures = max(failures, 1)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation and permanent errors say nothing about the collaborator
			return err == nil || errors.Is(err, context.Canceled) || IsPermanent(err)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("breaker state changed", "from", State(from), "to", State(to))
			if cfg.onChange != nil {
				cfg.onChange(State(from), State(to))
			}
		},
	}

	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
	}
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(b.cb.State())
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}
