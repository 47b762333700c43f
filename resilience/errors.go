package resilience

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCircuitOpen is returned when a breaker rejects a call without running it.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)
