package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var mu sync.Mutex
	var transitions []State
	b := NewBreaker("store", 3, 50*time.Millisecond, WithStateListener(func(_, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	}))
	assert.Equal(t, "store", b.Name())
	assert.Equal(t, StateClosed, b.State())

	boom := errors.New("boom")
	calls := 0
	fail := func() error {
		calls++
		return boom
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(fail), boom)
	}
	assert.Equal(t, StateOpen, b.State())

	// open: rejected without running
	err := b.Execute(fail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, calls)

	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b := NewBreaker("store", 2, time.Minute)
	boom := errors.New("boom")

	assert.Error(t, b.Execute(func() error { return boom }))
	assert.NoError(t, b.Execute(func() error { return nil }))
	assert.Error(t, b.Execute(func() error { return boom }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresCancellationAndPermanent(t *testing.T) {
	b := NewBreaker("store", 1, time.Minute)

	assert.ErrorIs(t, b.Execute(func() error { return context.Canceled }), context.Canceled)
	assert.Error(t, b.Execute(func() error { return Permanent(errors.New("bad query")) }))
	assert.Equal(t, StateClosed, b.State())

	assert.ErrorIs(t, b.Execute(func() error { return context.DeadlineExceeded }), context.DeadlineExceeded)
	assert.Equal(t, StateOpen, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown(7)", State(7).String())
}
