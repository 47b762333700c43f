package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/ai/mock"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/extraction"
	"github.com/poiesic/vitae/storage"
	"github.com/poiesic/vitae/storage/badger"
	"github.com/poiesic/vitae/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepositories(t *testing.T) (storage.SegmentRepository, storage.DocumentStateRepository) {
	segments, states, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		states.Close()
		segments.Close()
		backend.Close()
	})
	return segments, states
}

func newTestExtractor(t *testing.T) *extraction.Extractor {
	t.Helper()
	budget, err := tokens.NewBudget(tokens.EstimateCounter{}, config.DefaultConfig().Budget)
	require.NoError(t, err)
	e, err := extraction.NewExtractor(budget)
	require.NoError(t, err)
	return e
}

func newTestPipeline(t *testing.T, provider ai.AIProvider, opts ...Option) (*Pipeline, storage.SegmentRepository, storage.DocumentStateRepository) {
	t.Helper()
	segments, states := setupTestRepositories(t)
	if provider == nil {
		provider = mock.NewMockProvider()
	}
	base := []Option{
		WithConfig(config.NewConfig(config.WithRetry(3, time.Millisecond))),
		WithPoolSize(2),
	}
	p, err := NewPipeline(segments, states, newTestExtractor(t), provider, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, segments, states
}

func date(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func acmeDocument() *core.SourceDocument {
	return &core.SourceDocument{
		ID:           "acme-engineer",
		Category:     core.CategoryJob,
		Organization: "Acme",
		Title:        "Engineer",
		Start:        date(2020, time.March),
		End:          date(2022, time.June),
		Skills:       []string{"Go"},
		Outcomes:     []string{"Reduced latency by 40%"},
	}
}

func initechDocument() *core.SourceDocument {
	return &core.SourceDocument{
		ID:           "initech-lead",
		Category:     core.CategoryJob,
		Organization: "Initech",
		Title:        "Tech Lead",
		Start:        date(2022, time.July),
		Summary:      "Led the payments platform team through a migration to Kubernetes.",
		Skills:       []string{"Kubernetes", "PostgreSQL"},
		Topics:       []string{"payments"},
		Body: strings.Join([]string{
			"- Led a team of six engineers building the payments platform.",
			"- Migrated 40 services to Kubernetes with zero downtime.",
			"- Tuned PostgreSQL queries, cutting p99 latency by 35%.",
		}, "\n"),
	}
}

func TestNewPipeline(t *testing.T) {
	segments, states := setupTestRepositories(t)
	extractor := newTestExtractor(t)
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(segments, states, extractor, provider)
		require.NoError(t, err)
		p.Release()
	})

	t.Run("nil segment repository", func(t *testing.T) {
		_, err := NewPipeline(nil, states, extractor, provider)
		assert.Equal(t, ErrSegmentRepositoryRequired, err)
	})

	t.Run("nil state repository", func(t *testing.T) {
		_, err := NewPipeline(segments, nil, extractor, provider)
		assert.Equal(t, ErrStateRepositoryRequired, err)
	})

	t.Run("nil extractor", func(t *testing.T) {
		_, err := NewPipeline(segments, states, nil, provider)
		assert.Equal(t, ErrExtractorRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewPipeline(segments, states, extractor, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewPipeline(segments, states, extractor, provider,
			WithConfig(config.NewConfig(config.WithRetry(0, 0))))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestIngest_StoresSegmentsAndState(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	p, segments, states := newTestPipeline(t, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	report, err := p.Ingest(ctx, acmeDocument(), initechDocument())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Count(OutcomeIngested))
	assert.Equal(t, "acme-engineer", report.Documents[0].DocumentID)
	assert.Equal(t, "initech-lead", report.Documents[1].DocumentID)

	limits := config.DefaultConfig().Budget
	for _, d := range report.Documents {
		stored, err := segments.GetSegmentsByDocument(ctx, d.DocumentID)
		require.NoError(t, err)
		require.Len(t, stored, d.Segments)
		require.NotEmpty(t, stored)
		for _, seg := range stored {
			assert.GreaterOrEqual(t, seg.TokenCount, limits.TargetMin)
			assert.LessOrEqual(t, seg.TokenCount, limits.HardCap)
			assert.Len(t, seg.Vector, mock.DefaultDimensions)
			assert.InDelta(t, 1.0, core.Magnitude(seg.Vector), 1e-4)
		}

		state, err := states.LoadState(ctx, d.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, d.Segments, state.SegmentCount)
		assert.True(t, now.Equal(state.UpdatedAt))
	}

	state, err := states.LoadState(ctx, "acme-engineer")
	require.NoError(t, err)
	assert.Equal(t, acmeDocument().ContentHash(), state.ContentHash)
	assert.Equal(t, report.Segments(), report.Documents[0].Segments+report.Documents[1].Segments)
}

func TestIngest_ChangeDetection(t *testing.T) {
	provider := mock.NewMockProvider()
	p, segments, _ := newTestPipeline(t, provider)
	ctx := context.Background()

	first, err := p.Ingest(ctx, initechDocument())
	require.NoError(t, err)
	require.Equal(t, OutcomeIngested, first.Documents[0].Outcome)
	calls := provider.GetMockEmbedder().CallCount()

	t.Run("unchanged document is skipped", func(t *testing.T) {
		report, err := p.Ingest(ctx, initechDocument())
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnchanged, report.Documents[0].Outcome)
		assert.Equal(t, first.Documents[0].Segments, report.Documents[0].Segments)
		assert.Equal(t, calls, provider.GetMockEmbedder().CallCount())
	})

	t.Run("changed document supersedes its segments", func(t *testing.T) {
		changed := initechDocument()
		changed.Body = "- Ran the incident review process for the payments platform.\n- Wrote the on-call handbook used by 30 engineers."

		report, err := p.Ingest(ctx, changed)
		require.NoError(t, err)
		rep := report.Documents[0]
		require.Equal(t, OutcomeIngested, rep.Outcome, rep.Err)
		assert.Equal(t, first.Documents[0].Segments, rep.Replaced)

		stored, err := segments.GetSegmentsByDocument(ctx, "initech-lead")
		require.NoError(t, err)
		assert.Len(t, stored, rep.Segments)
		for _, seg := range stored {
			assert.NotContains(t, seg.Content, "Migrated 40 services")
		}
	})

	t.Run("force re-ingests unchanged documents", func(t *testing.T) {
		forced, _, _ := newTestPipeline(t, provider, WithForce(true))
		_, err := forced.Ingest(ctx, acmeDocument())
		require.NoError(t, err)
		report, err := forced.Ingest(ctx, acmeDocument())
		require.NoError(t, err)
		assert.Equal(t, OutcomeIngested, report.Documents[0].Outcome)
	})
}

func TestIngest_PerDocumentFailures(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string, purpose ai.Purpose) ([][]float32, error) {
		assert.Equal(t, ai.PurposeDocument, purpose)
		out := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.Contains(text, "Initech") {
				return nil, errors.New("embedder error")
			}
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}
	p, segments, states := newTestPipeline(t, mock.NewMockProviderWithServices(embedder, nil))
	ctx := context.Background()

	untitled := acmeDocument()
	untitled.ID = "untitled"
	untitled.Title = " "

	report, err := p.Ingest(ctx, acmeDocument(), initechDocument(), untitled, nil)
	require.NoError(t, err)
	require.Len(t, report.Documents, 4)

	assert.Equal(t, OutcomeIngested, report.Documents[0].Outcome)
	assert.Equal(t, OutcomeFailed, report.Documents[1].Outcome)
	assert.ErrorContains(t, report.Documents[1].Err, "embedder error")
	assert.Equal(t, OutcomeFailed, report.Documents[2].Outcome)
	assert.ErrorIs(t, report.Documents[2].Err, core.ErrInvalidDocument)
	assert.Equal(t, "#3", report.Documents[3].DocumentID)
	assert.Equal(t, 3, report.Count(OutcomeFailed))
	assert.Error(t, report.Err())

	stored, err := segments.GetSegmentsByDocument(ctx, "initech-lead")
	require.NoError(t, err)
	assert.Empty(t, stored)
	_, err = states.LoadState(ctx, "initech-lead")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIngest_EmbeddingRetry(t *testing.T) {
	var calls atomic.Int64
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string, _ ai.Purpose) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("temporary failure")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}
	p, _, _ := newTestPipeline(t, mock.NewMockProviderWithServices(embedder, nil))

	report, err := p.Ingest(context.Background(), acmeDocument())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIngested, report.Documents[0].Outcome, report.Documents[0].Err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestIngest_EmbeddingMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string, ai.Purpose) ([][]float32, error) {
		return [][]float32{}, nil
	}
	p, _, _ := newTestPipeline(t, mock.NewMockProviderWithServices(embedder, nil))

	report, err := p.Ingest(context.Background(), acmeDocument())
	require.NoError(t, err)
	assert.ErrorIs(t, report.Documents[0].Err, ErrEmbeddingMismatch)
}

func TestIngest_CanceledContext(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Ingest(ctx, acmeDocument())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForget(t *testing.T) {
	p, segments, states := newTestPipeline(t, nil)
	ctx := context.Background()

	report, err := p.Ingest(ctx, acmeDocument())
	require.NoError(t, err)
	require.Equal(t, OutcomeIngested, report.Documents[0].Outcome)

	removed, err := p.Forget(ctx, "acme-engineer")
	require.NoError(t, err)
	assert.Equal(t, report.Documents[0].Segments, removed)

	stored, err := segments.GetSegmentsByDocument(ctx, "acme-engineer")
	require.NoError(t, err)
	assert.Empty(t, stored)
	_, err = states.LoadState(ctx, "acme-engineer")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestValidationProcessor(t *testing.T) {
	vp := &validationProcessor{limits: config.DefaultConfig().Budget}
	ok := &core.EvidenceSegment{DocumentID: "d", Content: "text", TokenCount: 100}
	small := &core.EvidenceSegment{DocumentID: "d", Content: "text", TokenCount: 10}

	assert.NoError(t, vp.process(context.Background(), []*core.EvidenceSegment{ok}))
	err := vp.process(context.Background(), []*core.EvidenceSegment{ok, small})
	assert.ErrorIs(t, err, core.ErrTokenBudget)
	assert.ErrorContains(t, err, "segment 1")
}
