package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/vitae/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReembedder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewReembedder(nil, &mockEmbedder{}, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
	_, err = NewReembedder(repo, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	r, err := NewReembedder(repo, &mockEmbedder{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.iterator.batchSize)
}

func TestReembedder_Run(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	seedSegments(t, repo, 10)

	var buf bytes.Buffer
	config := &Config{BatchSize: 3, ReportInterval: 3, MaxRetries: 3, RetryDelay: time.Millisecond}
	rec := &recordingRecorder{}
	clock := newManualClock()
	r, err := NewReembedder(repo, &mockEmbedder{}, config, &buf, WithRecorder(rec), WithClock(clock.Now))
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Segments)
	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 3, summary.Dimensions)
	assert.Equal(t, 2, summary.PreviousDimensions)
	assert.Equal(t, 4, rec.batches)
	assert.Equal(t, 10, rec.segments)

	err = repo.ForEachSegment(ctx, 100, func(segs []*core.EvidenceSegment) error {
		for _, seg := range segs {
			require.Len(t, seg.Vector, 3)
			assert.InDelta(t, 1.0, core.Magnitude(seg.Vector), 0.01, "vector should be normalized")
		}
		return nil
	})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.WithVectors)
	assert.Equal(t, 3, stats.Dimensions)

	output := buf.String()
	assert.Contains(t, output, "Starting reembedding of 10 segments from 3 documents")
	assert.Contains(t, output, "10/10 segments across 3/3 documents", "should show completion")
	assert.Contains(t, output, "Vector dimensions changed from 2 to 3")
}

func TestReembedder_EmptyStore(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	var buf bytes.Buffer
	r, err := NewReembedder(repo, &mockEmbedder{}, DefaultConfig(), &buf)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Segments)
	assert.Contains(t, buf.String(), "0 segments", "should report zero segments")
}

func TestReembedder_ContextCancellation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedSegments(t, repo, 10)

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			callCount++
			if callCount == 2 {
				cancel()
			}
			result := make([][]float32, len(texts))
			for i := range result {
				result[i] = []float32{1.0, 0.0, 0.0}
			}
			return result, nil
		},
	}

	config := &Config{BatchSize: 3, ReportInterval: 3, MaxRetries: 3, RetryDelay: 10 * time.Millisecond}
	r, err := NewReembedder(repo, embedder, config, &bytes.Buffer{})
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 6, summary.Segments)
	assert.Positive(t, summary.Documents)
}

func TestReembedder_EmbeddingError(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedSegments(t, repo, 1)

	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("persistent error")
		},
	}
	config := &Config{BatchSize: 1, ReportInterval: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond}
	r, err := NewReembedder(repo, embedder, config, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent error")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Greater(t, config.BatchSize, 0, "batch size should be positive")
	assert.Greater(t, config.ReportInterval, 0, "report interval should be positive")
	assert.Greater(t, config.MaxRetries, 0, "max retries should be positive")
	assert.Greater(t, config.RetryDelay, time.Duration(0), "retry delay should be positive")
}
