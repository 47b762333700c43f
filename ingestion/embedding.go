package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/resilience"
)

// embeddingProcessor generates document embeddings for segments.
type embeddingProcessor struct {
	embedder    ai.Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(embedder ai.Embedder, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) (*embeddingProcessor, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder required", ErrAIProviderRequired)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		embedder:    embedder,
		maxAttempts: max(maxAttempts, 1),
		baseDelay:   baseDelay,
		logger:      logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the content of every segment and stores unit vectors.
func (ep *embeddingProcessor) process(ctx context.Context, segments []*core.EvidenceSegment) error {
	if len(segments) == 0 {
		return nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Content
	}

	ep.logger.Debug("generating embeddings for segments", "segments", len(texts))
	var embeddings [][]float32
	err := resilience.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = ep.embedder.EmbedTexts(ctx, texts, ai.PurposeDocument)
		if err != nil {
			ep.logger.Warn("embedding attempt failed", "err", err)
		}
		return err
	}, ep.maxAttempts, ep.baseDelay)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	if len(embeddings) != len(segments) {
		return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(segments), len(embeddings))
	}

	dims := len(embeddings[0])
	for i := range embeddings {
		if len(embeddings[i]) == 0 || len(embeddings[i]) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrEmbeddingMismatch, i, len(embeddings[i]), dims)
		}
		segments[i].Vector = core.NormalizeVector(embeddings[i])
	}
	return nil
}
