package tokens

import (
	"fmt"

	"github.com/poiesic/vitae/config"
)

// TruncationRecorder observes hard cap truncations.
type TruncationRecorder interface {
	ObserveTruncation(originalTokens, cappedTokens int)
}

// Capped is the outcome of EnforceHardCap.
type Capped struct {
	Text           string
	Truncated      bool
	OriginalTokens int
	Tokens         int
}

// Budget applies the configured token bounds using a shared Counter.
type Budget struct {
	counter  Counter
	limits   config.Budget
	recorder TruncationRecorder
}

// BudgetOption is a functional option for configuring a Budget.
type BudgetOption func(*Budget)

// WithTruncationRecorder reports truncations to r.
func WithTruncationRecorder(r TruncationRecorder) BudgetOption {
	return func(b *Budget) {
		b.recorder = r
	}
}

// NewBudget validates limits and returns a Budget counting with counter.
func NewBudget(counter Counter, limits config.Budget, opts ...BudgetOption) (*Budget, error) {
	if counter == nil {
		return nil, ErrCounterRequired
	}
	if limits.TargetMin <= 0 || limits.TargetMin > limits.TargetMax || limits.TargetMax > limits.HardCap {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidBudget, limits.TargetMin, limits.TargetMax, limits.HardCap)
	}

	b := &Budget{counter: counter, limits: limits}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Counter returns the shared counter.
func (b *Budget) Counter() Counter {
	return b.counter
}

// Limits returns the token bounds.
func (b *Budget) Limits() config.Budget {
	return b.limits
}

// Count returns the token count of text.
func (b *Budget) Count(text string) int {
	return b.counter.Count(text)
}

// IsWithinBudget reports whether text falls between TargetMin and TargetMax inclusive.
func (b *Budget) IsWithinBudget(text string) bool {
	n := b.counter.Count(text)
	return n >= b.limits.TargetMin && n <= b.limits.TargetMax
}

// EnforceHardCap returns text unchanged when it fits in HardCap tokens and
// truncates it to HardCap tokens otherwise. Applying it twice changes nothing.
func (b *Budget) EnforceHardCap(text string) Capped {
	n := b.counter.Count(text)
	if n <= b.limits.HardCap {
		return Capped{Text: text, OriginalTokens: n, Tokens: n}
	}

	truncated := b.counter.Truncate(text, b.limits.HardCap)
	capped := b.counter.Count(truncated)
	if b.recorder != nil {
		b.recorder.ObserveTruncation(n, capped)
	}
	return Capped{Text: truncated, Truncated: true, OriginalTokens: n, Tokens: capped}
}
