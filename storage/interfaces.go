package storage

import (
	"context"

	"github.com/poiesic/vitae/core"
)

// VectorSearcher runs similarity search over stored segment vectors.
type VectorSearcher interface {
	// Search returns segments whose similarity to vector is >= threshold,
	// up to limit results, ordered by similarity (highest first).
	// Filters never exclude segments; they are left to ranking.
	Search(ctx context.Context, vector []float32, threshold float32, limit int, filters core.Filters) ([]*core.SearchMatch, error)
}

// TextSearcher runs keyword search over stored segment content.
type TextSearcher interface {
	// SearchText returns segments containing any of keywords, best matches
	// first, up to limit results. Similarity is left at zero and filters
	// never exclude segments.
	SearchText(ctx context.Context, keywords []string, filters core.Filters, limit int) ([]*core.SearchMatch, error)
}

// Stats summarizes the contents of a segment store.
type Stats struct {
	Segments    int
	WithVectors int
	Documents   int
	Dimensions  int
}

// SegmentRepository provides persistence for evidence segments.
// Implementations must be thread-safe and support concurrent access.
type SegmentRepository interface {
	VectorSearcher
	TextSearcher

	// Upsert stores segments keyed by content fingerprint.
	// Segments with ID=0 get an ID derived from their content and a
	// missing Fingerprint is computed. InsertedAt is set if not already set.
	Upsert(ctx context.Context, segments ...*core.EvidenceSegment) ([]*core.EvidenceSegment, error)

	// DeleteByDocument removes every segment of a document along with its indices.
	// Returns the number of segments removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// GetSegment retrieves a single segment by ID.
	// Returns ErrNotFound if the segment doesn't exist.
	GetSegment(ctx context.Context, id core.ID) (*core.EvidenceSegment, error)

	// GetSegmentsByDocument retrieves the segments of a document.
	GetSegmentsByDocument(ctx context.Context, documentID string) ([]*core.EvidenceSegment, error)

	// UpdateVectors replaces the vectors of existing segments.
	// Returns ErrNotFound if any segment doesn't exist.
	UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error

	// ForEachSegment calls fn with batches of at most batchSize segments
	// until every segment was visited or fn returns an error.
	ForEachSegment(ctx context.Context, batchSize int, fn func([]*core.EvidenceSegment) error) error

	// Stats counts stored segments, vectors and documents.
	Stats(ctx context.Context) (Stats, error)

	// Vocabulary returns the distinct skills and topics across stored segments.
	Vocabulary(ctx context.Context) (skills, topics []string, err error)

	// Close releases resources.
	Close() error
}

// DocumentStateRepository tracks what was last ingested for each document.
type DocumentStateRepository interface {
	// SaveState creates or replaces the state of a document. A zero
	// UpdatedAt is stamped with the current time.
	SaveState(ctx context.Context, state *core.DocumentState) error

	// LoadState retrieves the state of a document.
	// Returns ErrNotFound if the document was never ingested.
	LoadState(ctx context.Context, documentID string) (*core.DocumentState, error)

	// DeleteState forgets a document. Missing states are not an error.
	DeleteState(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
