package reembed

import "errors"

var (
	// ErrRepositoryRequired is returned when a segment repository is not provided.
	ErrRepositoryRequired = errors.New("segment repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts, or vectors of differing length.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
