package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/ai/mock"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/metrics"
	"github.com/poiesic/vitae/resilience"
	"github.com/poiesic/vitae/scoring"
	"github.com/poiesic/vitae/storage"
	"github.com/poiesic/vitae/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a function-field double for both searcher interfaces.
type fakeStore struct {
	SearchFunc     func(ctx context.Context, vector []float32, threshold float32, limit int, filters core.Filters) ([]*core.SearchMatch, error)
	SearchTextFunc func(ctx context.Context, keywords []string, filters core.Filters, limit int) ([]*core.SearchMatch, error)

	searchCalls atomic.Int64
	textCalls   atomic.Int64
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, threshold float32, limit int, filters core.Filters) ([]*core.SearchMatch, error) {
	f.searchCalls.Add(1)
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, vector, threshold, limit, filters)
	}
	return nil, nil
}

func (f *fakeStore) SearchText(ctx context.Context, keywords []string, filters core.Filters, limit int) ([]*core.SearchMatch, error) {
	f.textCalls.Add(1)
	if f.SearchTextFunc != nil {
		return f.SearchTextFunc(ctx, keywords, filters, limit)
	}
	return nil, nil
}

var (
	_ storage.VectorSearcher = (*fakeStore)(nil)
	_ storage.TextSearcher   = (*fakeStore)(nil)
)

var fixedNow = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func testConfig(opts ...config.ConfigOption) *config.Config {
	base := []config.ConfigOption{config.WithRetry(3, time.Millisecond)}
	return config.NewConfig(append(base, opts...)...)
}

func newTestRetriever(t *testing.T, store *fakeStore, provider ai.AIProvider, opts ...Option) *Retriever {
	t.Helper()
	if provider == nil {
		provider = mock.NewMockProvider()
	}
	base := []Option{WithConfig(testConfig()), WithClock(func() time.Time { return fixedNow })}
	r, err := NewRetriever(store, store, provider, append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func segment(id core.ID, doc, content string, skills ...string) *core.EvidenceSegment {
	return &core.EvidenceSegment{
		ID:           id,
		DocumentID:   doc,
		Kind:         core.KindTechnical,
		Content:      content,
		Title:        "Engineer",
		Organization: "Acme",
		Start:        time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2022, time.June, 30, 0, 0, 0, 0, time.UTC),
		Skills:       skills,
	}
}

const goContent = "Acme • Engineer • 2020–2022\nBuilt Go services handling 2M requests per day. Mentored two engineers."

func TestNewRetriever(t *testing.T) {
	store := &fakeStore{}
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(store, store, provider)
		require.NoError(t, err)
		assert.NotNil(t, r)
		assert.Equal(t, resilience.StateClosed, r.BreakerState())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		r, err := NewRetriever(store, store, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("nil vector searcher", func(t *testing.T) {
		_, err := NewRetriever(nil, store, provider)
		assert.Equal(t, ErrVectorSearcherRequired, err)
	})

	t.Run("nil text searcher", func(t *testing.T) {
		_, err := NewRetriever(store, nil, provider)
		assert.Equal(t, ErrTextSearcherRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewRetriever(store, store, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.NewConfig(config.WithWeights(0.1, 0.5, 0.4))
		_, err := NewRetriever(store, store, provider, WithConfig(cfg))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestRetrieve_VectorPathWithBadger(t *testing.T) {
	segments, states, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		states.Close()
		segments.Close()
		backend.Close()
	}()

	ctx := context.Background()
	goSeg := segment(0, "acme", goContent, "Go")
	goSeg.Vector = []float32{0.9, 0.1, 0}
	k8sSeg := segment(0, "globex", "Globex • SRE • 2019–Present\nRan Kubernetes clusters across three regions for payments.", "Kubernetes")
	k8sSeg.Start = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	k8sSeg.End = time.Time{}
	k8sSeg.Vector = []float32{0.7, 0.3, 0}
	cooking := segment(0, "blog", "Personal blog • Writer • 2015\nWrote long articles about cooking pasta at home.", "Writing")
	cooking.Vector = []float32{0, 0.1, 0.9}
	_, err = segments.Upsert(ctx, goSeg, k8sSeg, cooking)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, _ string, purpose ai.Purpose) ([]float32, error) {
		assert.Equal(t, ai.PurposeQuery, purpose)
		return []float32{1, 0, 0}, nil
	}
	provider := mock.NewMockProviderWithServices(embedder, nil)

	r, err := NewRetriever(segments, segments, provider,
		WithConfig(testConfig()),
		WithClock(func() time.Time { return fixedNow }),
		WithVocabularySource(segments),
	)
	require.NoError(t, err)

	result, err := r.Retrieve(ctx, Query{Text: "backend services"})
	require.NoError(t, err)

	assert.Equal(t, scoring.PathVector, result.Path)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "acme", result.Candidates[0].Segment.DocumentID)
	assert.Equal(t, "globex", result.Candidates[1].Segment.DocumentID)
	assert.Empty(t, result.Guidance)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 2, result.Coverage.Sources)
	assert.Equal(t, "2019–Present", result.Coverage.Span.Format())
	assert.Equal(t, []string{"Built Go services handling 2M requests per day."}, result.Candidates[0].KeyPhrases)
}

func TestRetrieve_DateRangeNeverExcludes(t *testing.T) {
	segments, states, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		states.Close()
		segments.Close()
		backend.Close()
	}()

	ctx := context.Background()
	old := segment(0, "acme", goContent, "Go")
	old.Start = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	old.End = time.Date(2016, time.December, 31, 0, 0, 0, 0, time.UTC)
	old.Vector = []float32{1, 0, 0}
	recent := segment(0, "globex", "Globex • SRE • 2021\nRan payment services across three regions with Go.", "Go")
	recent.Start = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	recent.End = time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)
	recent.Vector = []float32{0.8, 0.6, 0}
	_, err = segments.Upsert(ctx, old, recent)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string, ai.Purpose) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	r, err := NewRetriever(segments, segments, mock.NewMockProviderWithServices(embedder, nil),
		WithConfig(testConfig()),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	result, err := r.Retrieve(ctx, Query{Text: "payment services I built in 2021"})
	require.NoError(t, err)

	assert.True(t, result.ImplicitFilters)
	assert.Equal(t, 2021, result.Filters.Range.Start.Year())
	assert.Equal(t, scoring.PathVector, result.Path)
	assert.Empty(t, result.Guidance)
	require.Len(t, result.Candidates, 2)

	byDoc := make(map[string]*Hit)
	for _, hit := range result.Candidates {
		byDoc[hit.Segment.DocumentID] = hit
	}
	require.Contains(t, byDoc, "acme", "out of range match is still returned")
	assert.False(t, byDoc["acme"].MatchedRange)
	assert.InDelta(t, 1.0, byDoc["acme"].Similarity, 1e-6)
	require.Contains(t, byDoc, "globex")
	assert.True(t, byDoc["globex"].MatchedRange)
	assert.Contains(t, byDoc["globex"].Explanation, "within requested dates")
}

func TestRetrieve_FallbackExclusivity(t *testing.T) {
	ctx := context.Background()

	t.Run("vector hits suppress the keyword search", func(t *testing.T) {
		store := &fakeStore{
			SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
				return []*core.SearchMatch{{Segment: segment(1, "acme", goContent, "Go"), Similarity: 0.8}}, nil
			},
			SearchTextFunc: func(context.Context, []string, core.Filters, int) ([]*core.SearchMatch, error) {
				return []*core.SearchMatch{{Segment: segment(2, "other", goContent+" Extra.")}}, nil
			},
		}
		r := newTestRetriever(t, store, nil)

		result, err := r.Retrieve(ctx, Query{Text: "Go services"})
		require.NoError(t, err)
		assert.Equal(t, scoring.PathVector, result.Path)
		assert.Equal(t, int64(0), store.textCalls.Load())
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, core.ID(1), result.Candidates[0].Segment.ID)
	})

	t.Run("empty vector result falls back", func(t *testing.T) {
		var gotKeywords []string
		store := &fakeStore{
			SearchTextFunc: func(_ context.Context, keywords []string, _ core.Filters, _ int) ([]*core.SearchMatch, error) {
				gotKeywords = keywords
				return []*core.SearchMatch{{Segment: segment(2, "acme", goContent, "Go")}}, nil
			},
		}
		r := newTestRetriever(t, store, nil)

		result, err := r.Retrieve(ctx, Query{Text: "Go services"})
		require.NoError(t, err)
		assert.Equal(t, scoring.PathLexical, result.Path)
		assert.Equal(t, int64(1), store.searchCalls.Load())
		assert.Equal(t, int64(1), store.textCalls.Load())
		assert.Equal(t, []string{"go", "services"}, gotKeywords)

		require.Len(t, result.Candidates, 1)
		hit := result.Candidates[0]
		assert.Equal(t, scoring.PathLexical, hit.Path)
		assert.InDelta(t, 0.35, hit.Similarity, 1e-9)
		assert.Equal(t, ConfidenceLow, hit.Confidence)
		assert.Contains(t, hit.Explanation, "keyword match")
	})
}

func TestRetrieve_EmptyResult(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(t, store, nil)

	result, err := r.Retrieve(context.Background(), Query{Text: "underwater basket weaving"})
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Guidance)
	assert.Equal(t, "no matching evidence", result.Coverage.Summary)
	assert.Equal(t, scoring.PathLexical, result.Path)
}

func TestRetrieve_ValidationDropsBadCandidates(t *testing.T) {
	store := &fakeStore{
		SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
			return []*core.SearchMatch{
				{Segment: segment(1, "acme", goContent), Similarity: 1.7},
				{Segment: segment(0, "acme", goContent+" No ID."), Similarity: 0.9},
				{Segment: segment(3, "acme", "too short"), Similarity: 0.9},
				{Segment: segment(1, "acme", goContent), Similarity: 0.5},
				{Segment: nil},
				nil,
			}, nil
		},
	}
	monitor := &recordingMonitor{}
	r := newTestRetriever(t, store, nil)

	result, err := r.RetrieveWithMonitor(context.Background(), Query{Text: "Go services"}, monitor)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 1.0, result.Candidates[0].Similarity)
	assert.Equal(t, ConfidenceHigh, result.Candidates[0].Confidence)
	assert.Equal(t, 1, monitor.kept)
	assert.Equal(t, 5, monitor.dropped)
}

func TestRetrieve_ProviderFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	boom := errors.New("connection refused")
	embedder.EmbedTextFunc = func(context.Context, string, ai.Purpose) ([]float32, error) {
		return nil, boom
	}
	store := &fakeStore{}
	reg := prometheus.NewRegistry()
	r := newTestRetriever(t, store, mock.NewMockProviderWithServices(embedder, nil), WithMetrics(metrics.New(reg)))

	_, err := r.Retrieve(context.Background(), Query{Text: "Go services"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStore)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(0), store.searchCalls.Load())
	assert.Equal(t, 1.0, metricValue(t, reg, "vitae_retrieval_errors_total"))
}

func TestRetrieve_StoreRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after transient failures", func(t *testing.T) {
		store := &fakeStore{}
		store.SearchFunc = func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
			if store.searchCalls.Load() < 3 {
				return nil, errors.New("timeout")
			}
			return []*core.SearchMatch{{Segment: segment(1, "acme", goContent), Similarity: 0.8}}, nil
		}
		r := newTestRetriever(t, store, nil)

		result, err := r.Retrieve(ctx, Query{Text: "Go services"})
		require.NoError(t, err)
		assert.Len(t, result.Candidates, 1)
		assert.Equal(t, int64(3), store.searchCalls.Load())
	})

	t.Run("exhausted retries surface a store error", func(t *testing.T) {
		store := &fakeStore{
			SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
				return nil, errors.New("connection reset")
			},
		}
		r := newTestRetriever(t, store, nil)

		_, err := r.Retrieve(ctx, Query{Text: "Go services"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStore)

		var serr *StoreError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 3, serr.Attempts)
		assert.Equal(t, "search", serr.Op)
		assert.Equal(t, int64(3), store.searchCalls.Load())
	})

	t.Run("invalid store query is not retried", func(t *testing.T) {
		store := &fakeStore{
			SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
				return nil, storage.ErrInvalidQuery
			},
		}
		r := newTestRetriever(t, store, nil)

		_, err := r.Retrieve(ctx, Query{Text: "Go services"})
		assert.ErrorIs(t, err, ErrInvalidQuery)
		assert.Equal(t, int64(1), store.searchCalls.Load())
	})
}

func TestRetrieve_CircuitBreaker(t *testing.T) {
	store := &fakeStore{
		SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
			return nil, errors.New("store down")
		},
	}
	reg := prometheus.NewRegistry()
	cfg := testConfig(config.WithRetry(1, time.Millisecond), config.WithBreaker(2, time.Minute))
	r := newTestRetriever(t, store, nil, WithConfig(cfg), WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Retrieve(ctx, Query{Text: "Go services"})
		require.ErrorIs(t, err, ErrStore)
	}
	assert.Equal(t, resilience.StateOpen, r.BreakerState())
	assert.Equal(t, float64(metrics.BreakerOpen), metricValue(t, reg, "vitae_store_breaker_state"))

	_, err := r.Retrieve(ctx, Query{Text: "Go services"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int64(2), store.searchCalls.Load(), "open breaker must fail fast")
}

func TestRetrieve_InvalidQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newTestRetriever(t, &fakeStore{}, nil, WithMetrics(metrics.New(reg)))
	bad := 1.5
	backwards := core.Filters{Range: core.DateRange{
		Start: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	tests := []struct {
		name  string
		query Query
	}{
		{"empty text", Query{Text: "   "}},
		{"negative limit", Query{Text: "Go", Limit: -1}},
		{"similarity out of range", Query{Text: "Go", MinSimilarity: &bad}},
		{"backwards date range", Query{Text: "Go", Filters: &backwards}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Retrieve(context.Background(), tt.query)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
	assert.Equal(t, float64(len(tests)), metricValue(t, reg, "vitae_retrieval_errors_total"))
}

func TestRetrieve_LimitAndThreshold(t *testing.T) {
	var gotThreshold float32
	var gotLimit int
	store := &fakeStore{
		SearchFunc: func(_ context.Context, _ []float32, threshold float32, limit int, _ core.Filters) ([]*core.SearchMatch, error) {
			gotThreshold, gotLimit = threshold, limit
			var out []*core.SearchMatch
			for i := 1; i <= 10; i++ {
				out = append(out, &core.SearchMatch{
					Segment:    segment(core.ID(i), fmt.Sprintf("doc-%d", i), fmt.Sprintf("%s Variant %d.", goContent, i)),
					Similarity: 0.9 - float32(i)*0.01,
				})
			}
			return out, nil
		},
	}
	r := newTestRetriever(t, store, nil)
	ctx := context.Background()

	result, err := r.Retrieve(ctx, Query{Text: "Go"})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 5)
	assert.Equal(t, 15, gotLimit)
	assert.InDelta(t, 0.20, result.Threshold, 1e-9)
	assert.InDelta(t, 0.20, gotThreshold, 1e-6)

	override := 0.42
	result, err = r.Retrieve(ctx, Query{Text: "Go", Limit: 100, MinSimilarity: &override})
	require.NoError(t, err)
	assert.Equal(t, 0.42, result.Threshold)
	assert.Equal(t, 150, gotLimit, "limit is capped at the configured maximum")
	assert.Len(t, result.Candidates, 10)
}

func TestRetrieve_ImplicitFilters(t *testing.T) {
	var gotFilters core.Filters
	store := &fakeStore{
		SearchFunc: func(_ context.Context, _ []float32, _ float32, _ int, filters core.Filters) ([]*core.SearchMatch, error) {
			gotFilters = filters
			return nil, nil
		},
	}
	r := newTestRetriever(t, store, nil, WithVocabulary([]string{"Kubernetes", "Go"}, []string{"payments"}))
	ctx := context.Background()

	result, err := r.Retrieve(ctx, Query{Text: "kubernets work on payments since 2019"})
	require.NoError(t, err)
	assert.True(t, result.ImplicitFilters)
	assert.Equal(t, []string{"Kubernetes"}, gotFilters.Skills)
	assert.Equal(t, []string{"payments"}, gotFilters.Tags)
	assert.Equal(t, 2019, gotFilters.Range.Start.Year())
	assert.True(t, gotFilters.Range.IsOpen())
	assert.Contains(t, result.Guidance, "2019–Present")

	t.Run("explicit filters take precedence", func(t *testing.T) {
		explicit := core.Filters{Skills: []string{"Go"}}
		result, err := r.Retrieve(ctx, Query{Text: "kubernets work since 2019", Filters: &explicit})
		require.NoError(t, err)
		assert.False(t, result.ImplicitFilters)
		assert.Equal(t, explicit, gotFilters)
	})
}

func TestRetrieve_ExpansionFeedsKeywordsOnly(t *testing.T) {
	expander := mock.NewMockExpander()
	expander.ExpandFunc = func(context.Context, string) ([]string, error) {
		return []string{"kubernetes"}, nil
	}
	embedder := mock.NewMockEmbedder()
	var embedded string
	embedder.EmbedTextFunc = func(_ context.Context, text string, _ ai.Purpose) ([]float32, error) {
		embedded = text
		return []float32{1, 0}, nil
	}
	var keywords []string
	store := &fakeStore{
		SearchTextFunc: func(_ context.Context, kw []string, _ core.Filters, _ int) ([]*core.SearchMatch, error) {
			keywords = kw
			return nil, nil
		},
	}
	r := newTestRetriever(t, store, mock.NewMockProviderWithServices(embedder, expander))

	result, err := r.Retrieve(context.Background(), Query{Text: "k8s clusters"})
	require.NoError(t, err)
	assert.Equal(t, "k8s clusters", embedded)
	assert.Equal(t, []string{"k8s", "clusters", "kubernetes"}, keywords)
	assert.Equal(t, []string{"kubernetes"}, result.Expansions)

	t.Run("expansion errors are ignored", func(t *testing.T) {
		expander.ExpandFunc = func(context.Context, string) ([]string, error) {
			return nil, errors.New("llm offline")
		}
		result, err := r.Retrieve(context.Background(), Query{Text: "k8s clusters"})
		require.NoError(t, err)
		assert.Empty(t, result.Expansions)
	})
}

func TestRetrieve_SoftFiltersBoostOnly(t *testing.T) {
	plain := segment(1, "a", goContent)
	tagged := segment(2, "b", goContent+" Also Go.", "Go")
	store := &fakeStore{
		SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
			return []*core.SearchMatch{
				{Segment: plain, Similarity: 0.80},
				{Segment: tagged, Similarity: 0.70},
			}, nil
		},
	}
	r := newTestRetriever(t, store, nil)
	filters := core.Filters{Skills: []string{"go"}}

	result, err := r.Retrieve(context.Background(), Query{Text: "Go services", Filters: &filters})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, core.ID(1), result.Candidates[0].Segment.ID, "overlap never beats a larger similarity gap")
	assert.Equal(t, []string{"Go"}, result.Candidates[1].MatchedSkills)
	assert.Contains(t, result.Candidates[1].Explanation, "skills Go")
}

func TestRetrieve_ConcurrentUse(t *testing.T) {
	store := &fakeStore{
		SearchFunc: func(context.Context, []float32, float32, int, core.Filters) ([]*core.SearchMatch, error) {
			return []*core.SearchMatch{{Segment: segment(1, "acme", goContent), Similarity: 0.8}}, nil
		},
	}
	r := newTestRetriever(t, store, nil, WithLogger(slog.New(slog.DiscardHandler)))

	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(i int) {
			_, err := r.Retrieve(context.Background(), Query{Text: fmt.Sprintf("Go services %d", i)})
			errs <- err
		}(i)
	}
	for i := 0; i < 16; i++ {
		assert.NoError(t, <-errs)
	}
}

type recordingMonitor struct {
	noopMonitor
	stages  []string
	kept    int
	dropped int
}

func (m *recordingMonitor) Start(Query) {
	m.stages = append(m.stages, "start")
}

func (m *recordingMonitor) AfterEmbedding(int) {
	m.stages = append(m.stages, "embed")
}

func (m *recordingMonitor) AfterSearch(p scoring.Path, _ int) {
	m.stages = append(m.stages, "search:"+string(p))
}

func (m *recordingMonitor) AfterValidation(kept, dropped int) {
	m.kept, m.dropped = kept, dropped
}

func (m *recordingMonitor) Finish(*Result) {
	m.stages = append(m.stages, "finish")
}

func TestRetrieveWithMonitor_Stages(t *testing.T) {
	monitor := &recordingMonitor{}
	r := newTestRetriever(t, &fakeStore{}, nil)

	_, err := r.RetrieveWithMonitor(context.Background(), Query{Text: "Go services"}, monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "embed", "search:vector", "search:lexical", "finish"}, monitor.stages)
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func TestKeyPhrasesSkipHeader(t *testing.T) {
	content := "Acme • Engineer • 2020–2022\nCut costs by $40k. Led the migration. Grew revenue 15%."
	assert.Equal(t, []string{"Cut costs by $40k.", "Grew revenue 15%."}, keyPhrases(content))
	assert.Empty(t, keyPhrases(strings.Repeat("plain words ", 5)))
}
