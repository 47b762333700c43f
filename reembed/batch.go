package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/resilience"
	"github.com/poiesic/vitae/storage"
)

// BatchProcessor handles embedding generation for batches of segments.
type BatchProcessor struct {
	repo           storage.SegmentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.SegmentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of segments and stores them.
// Vectors are normalized after embedding so cosine similarity reduces to a
// dot product. It returns the vector dimension of the batch.
func (bp *BatchProcessor) Process(ctx context.Context, segments []*core.EvidenceSegment) (int, error) {
	if len(segments) == 0 {
		return 0, nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Content
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := resilience.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts, ai.PurposeDocument)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(segments) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(segments), len(embeddings))
	}

	dims := len(embeddings[0])
	vectors := make(map[core.ID][]float32, len(segments))
	for i, seg := range segments {
		if len(embeddings[i]) != dims {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrEmbeddingMismatch, i, len(embeddings[i]), dims)
		}
		vector := core.NormalizeVector(embeddings[i])
		seg.Vector = vector
		vectors[seg.ID] = vector
	}

	if err := bp.repo.UpdateVectors(ctx, vectors); err != nil {
		return 0, fmt.Errorf("failed to update segments: %w", err)
	}
	return dims, nil
}
