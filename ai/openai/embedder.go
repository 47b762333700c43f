package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/vitae/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// It is safe for concurrent use.
type Embedder struct {
	embedder embeddings.Embedder
	limiter  *rate.Limiter // nil when unlimited
	config   *ai.Config
	logger   *slog.Logger
}

// newEmbedder creates a new OpenAI embedder (internal use, returns concrete type).
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Embedder{
		embedder: embedder,
		limiter:  limiter,
		config:   config,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new OpenAI embedder.
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

func (e *Embedder) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// EmbedText generates an embedding for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string, purpose ai.Purpose) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.ErrEmptyInput
	}
	if err := e.wait(ctx); err != nil {
		return nil, err
	}

	e.logger.Debug("generating embedding for single text", "length", len(text), "purpose", purpose)
	input := e.config.Prefix(purpose) + text

	if purpose == ai.PurposeQuery {
		vector, err := e.embedder.EmbedQuery(ctx, input)
		if err != nil {
			e.logger.Error("failed to generate query embedding", "err", err)
			return nil, err
		}
		if len(vector) == 0 {
			return nil, ai.ErrNoEmbedding
		}
		return vector, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{input})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		e.logger.Warn("embedder returned empty result")
		return nil, ai.ErrNoEmbedding
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for multiple texts in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string, purpose ai.Purpose) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}
	prefix := e.config.Prefix(purpose)
	inputs := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, ai.ErrEmptyInput
		}
		inputs[i] = prefix + text
	}
	if err := e.wait(ctx); err != nil {
		return nil, err
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts), "purpose", purpose)
	vectors, err := e.embedder.EmbedDocuments(ctx, inputs)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, ai.ErrNoEmbedding
	}
	return vectors, nil
}
