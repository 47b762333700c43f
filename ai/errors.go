package ai

import "errors"

var (
	// ErrEmptyInput is returned when there is no text to embed or expand.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrNoEmbedding is returned when a service answers without a vector.
	ErrNoEmbedding = errors.New("embedding service returned no vector")

	// ErrInvalidConfig indicates an incomplete or inconsistent Config.
	ErrInvalidConfig = errors.New("invalid ai config")
)
