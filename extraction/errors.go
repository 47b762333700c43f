package extraction

import "errors"

var (
	// ErrBudgetRequired indicates the extractor was built without a token budget.
	ErrBudgetRequired = errors.New("token budget is required")

	// ErrRunRequired indicates Extract was called without a dedup run.
	ErrRunRequired = errors.New("extraction run is required")

	// ErrStrategyRequired indicates a nil evidence strategy.
	ErrStrategyRequired = errors.New("evidence strategy is required")
)
