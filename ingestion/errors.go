package ingestion

import "errors"

var (
	// ErrSegmentRepositoryRequired is returned when a segment repository is not provided.
	ErrSegmentRepositoryRequired = errors.New("segment repository required")

	// ErrStateRepositoryRequired is returned when a document state repository is not provided.
	ErrStateRepositoryRequired = errors.New("document state repository required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts, or vectors of differing length.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)
