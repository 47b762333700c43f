package ai

import "context"

// Purpose tells an Embedder what a text will be used for. Asymmetric
// embedding models encode queries and documents differently.
type Purpose int

const (
	// PurposeDocument marks text that is stored and searched.
	PurposeDocument Purpose = iota
	// PurposeQuery marks text that is searched for.
	PurposeQuery
)

func (p Purpose) String() string {
	if p == PurposeQuery {
		return "query"
	}
	return "document"
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrEmptyInput for blank text.
	EmbedText(ctx context.Context, text string, purpose Purpose) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns ErrEmptyInput if texts is empty or any text is blank.
	EmbedTexts(ctx context.Context, texts []string, purpose Purpose) ([][]float32, error)
}

// QueryExpander proposes alternative phrasings of a search query.
// Implementations must be thread-safe for concurrent use.
type QueryExpander interface {
	// Expand returns related phrasings or terms for query, not including
	// query itself. An empty result is valid.
	Expand(ctx context.Context, query string) ([]string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// QueryExpander returns the query expansion service.
	QueryExpander() QueryExpander

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
