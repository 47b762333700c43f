package scoring

import "errors"

// ErrInvalidWeights indicates weights that cannot produce a meaningful score.
var ErrInvalidWeights = errors.New("invalid scoring weights")
