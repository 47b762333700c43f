package tokens

import "errors"

var (
	// ErrCounterRequired indicates a nil Counter was provided.
	ErrCounterRequired = errors.New("token counter is required")

	// ErrInvalidBudget indicates token bounds that are not ordered 0 < min <= max <= cap.
	ErrInvalidBudget = errors.New("invalid token budget")

	// ErrBudgetRequired indicates a nil Budget was provided.
	ErrBudgetRequired = errors.New("token budget is required")
)
