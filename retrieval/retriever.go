// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/metrics"
	"github.com/poiesic/vitae/resilience"
	"github.com/poiesic/vitae/scoring"
	"github.com/poiesic/vitae/storage"
)

// Retriever finds and ranks the evidence segments most relevant to a query.
// It keeps no per-call state and is safe for concurrent use.
type Retriever struct {
	vectors    storage.VectorSearcher
	texts      storage.TextSearcher
	embedder   ai.Embedder
	expander   ai.QueryExpander
	vocabulary VocabularySource
	config     *config.Config
	engine     *scoring.Engine
	guard      *storeGuard
	metrics    *metrics.Metrics
	monitor    RetrievalMonitor
	clock      func() time.Time
	logger     *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithConfig sets the tuning configuration.
// Default is config.DefaultConfig().
func WithConfig(cfg *config.Config) Option {
	return func(r *Retriever) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		r.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithExpander replaces the provider's query expander.
func WithExpander(expander ai.QueryExpander) Option {
	return func(r *Retriever) error {
		r.expander = expander
		return nil
	}
}

// WithVocabulary sets a fixed list of known skills and topics used to derive
// implicit filters.
func WithVocabulary(skills, topics []string) Option {
	return func(r *Retriever) error {
		r.vocabulary = staticVocabulary{skills: skills, topics: topics}
		return nil
	}
}

// WithVocabularySource reads known skills and topics from src on every call.
func WithVocabularySource(src VocabularySource) Option {
	return func(r *Retriever) error {
		r.vocabulary = src
		return nil
	}
}

// WithMetrics records retrieval metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retriever) error {
		r.metrics = m
		return nil
	}
}

// WithClock sets the time source anchoring recency.
func WithClock(clock func() time.Time) Option {
	return func(r *Retriever) error {
		if clock != nil {
			r.clock = clock
		}
		return nil
	}
}

// WithMonitor sets the monitor used by Retrieve.
func WithMonitor(monitor RetrievalMonitor) Option {
	return func(r *Retriever) error {
		if monitor != nil {
			r.monitor = monitor
		}
		return nil
	}
}

// NewRetriever creates a retriever over the given stores. The embedder and
// default query expander come from provider.
func NewRetriever(
	vectors storage.VectorSearcher,
	texts storage.TextSearcher,
	provider ai.AIProvider,
	opts ...Option,
) (*Retriever, error) {
	if vectors == nil {
		return nil, ErrVectorSearcherRequired
	}
	if texts == nil {
		return nil, ErrTextSearcherRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		vectors:  vectors,
		texts:    texts,
		embedder: provider.Embedder(),
		expander: provider.QueryExpander(),
		config:   config.DefaultConfig(),
		monitor:  &noopMonitor{},
		clock:    time.Now,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.embedder == nil {
		return nil, ErrAIProviderRequired
	}
	if r.expander == nil {
		r.expander = ai.NewSynonymExpander(nil, 0)
	}
	engine, err := scoring.NewEngine(r.config.Weights, scoring.WithClock(r.clock), scoring.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.engine = engine
	r.guard = newStoreGuard(r.config, r.metrics, r.logger)
	r.logger = r.logger.With("component", "retriever")

	r.logger.Debug("retriever configured", "config", r.config)
	return r, nil
}

// Config returns the configuration in use.
func (r *Retriever) Config() *config.Config {
	return r.config
}

// BreakerState reports the state of the store circuit breaker.
func (r *Retriever) BreakerState() resilience.State {
	return r.guard.state()
}

// Retrieve answers q with ranked, enriched segments.
// An empty result carries Guidance and a nil error.
func (r *Retriever) Retrieve(ctx context.Context, q Query) (*Result, error) {
	return r.RetrieveWithMonitor(ctx, q, nil)
}

// RetrieveWithMonitor retrieves with monitoring.
// The monitor receives callbacks at each stage of the retrieval.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, q Query, monitor RetrievalMonitor) (*Result, error) {
	if monitor == nil {
		monitor = r.monitor
	}
	started := time.Now()

	result, err := r.retrieve(ctx, q, monitor)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		r.metrics.RetrievalFailed(errorKind(err), elapsed)
		return nil, err
	}
	r.metrics.RetrievalCompleted(string(result.Path), elapsed)
	return result, nil
}

func (r *Retriever) retrieve(ctx context.Context, q Query, monitor RetrievalMonitor) (*Result, error) {
	limit, err := r.validate(q)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	logger := r.logger.With("request_id", requestID)
	monitor.Start(q)

	// 1. Expand the query. Expansions only widen keyword matching.
	expansions := r.expand(ctx, q.Text, logger)
	monitor.AfterExpansion(expansions)

	// 2. Embed the original query
	vector, err := r.embed(ctx, q.Text)
	if err != nil {
		logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	// 3. Resolve filters
	filters, implicit := r.resolveFilters(ctx, q, expansions, logger)

	// 4. Choose the similarity floor
	threshold := r.threshold(q, filters)
	monitor.ThresholdChosen(threshold, filters, implicit)
	logger.Debug("threshold chosen", "threshold", threshold, "implicit_filters", implicit)

	// 5. Vector search
	fetch := limit * r.config.Retrieval.OverFetch
	state := newPathState()
	var matches []*core.SearchMatch
	err = r.guard.do(ctx, "search", func(ctx context.Context) error {
		found, err := r.vectors.Search(ctx, vector, float32(threshold), fetch, filters)
		matches = found
		return err
	})
	if err != nil {
		logger.Error("error querying for similar segments", "err", err)
		return nil, err
	}
	monitor.AfterSearch(scoring.PathVector, len(matches))

	// 6. Keyword fallback, only when the vector path found nothing
	if state.vectorDone(len(matches)) {
		keywords := r.keywords(q.Text, expansions)
		if len(keywords) > 0 {
			err = r.guard.do(ctx, "search_text", func(ctx context.Context) error {
				found, err := r.texts.SearchText(ctx, keywords, filters, fetch)
				matches = found
				return err
			})
			if err != nil {
				logger.Error("error querying keyword fallback", "err", err)
				return nil, err
			}
		}
		monitor.AfterSearch(scoring.PathLexical, len(matches))
	}
	path := state.path()

	// 7. Validate
	candidates, dropped := r.validateMatches(matches, path)
	monitor.AfterValidation(len(candidates), dropped)

	// 8. Score, rerank and truncate
	ranked := r.engine.Rank(candidates, scoring.SearchContext{Now: r.clock(), Filters: filters})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	// 9. Enrich
	hits := make([]*Hit, 0, len(ranked))
	for _, sc := range ranked {
		hits = append(hits, enrich(sc, r.config.Retrieval))
	}

	// 10. Coverage
	result := &Result{
		RequestID:       requestID,
		Candidates:      hits,
		Threshold:       threshold,
		Path:            path,
		Coverage:        coverageOf(hits),
		Expansions:      expansions,
		Filters:         filters,
		ImplicitFilters: implicit,
	}
	if result.IsEmpty() {
		result.Guidance = guidance(q, filters, implicit)
	}

	logger.Info("retrieval complete",
		"path", path, "candidates", len(hits), "dropped", dropped, "threshold", threshold)
	monitor.Finish(result)
	return result, nil
}

// validate checks q and returns the effective result limit.
func (r *Retriever) validate(q Query) (int, error) {
	rc := r.config.Retrieval
	if strings.TrimSpace(q.Text) == "" {
		return 0, fmt.Errorf("%w: empty query text", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return 0, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	if q.MinSimilarity != nil {
		v := *q.MinSimilarity
		if math.IsNaN(v) || v < 0 || v > 1 {
			return 0, fmt.Errorf("%w: min similarity %v outside [0, 1]", ErrInvalidQuery, v)
		}
	}
	if f := q.Filters; f != nil && !f.Range.Start.IsZero() && !f.Range.End.IsZero() && f.Range.End.Before(f.Range.Start) {
		return 0, fmt.Errorf("%w: date range ends before it starts", ErrInvalidQuery)
	}

	limit := q.Limit
	if limit == 0 {
		limit = rc.DefaultLimit
	}
	return min(limit, rc.MaxLimit), nil
}

func (r *Retriever) expand(ctx context.Context, text string, logger *slog.Logger) []string {
	ctx, cancel := context.WithTimeout(ctx, r.config.Retrieval.EmbedTimeout())
	defer cancel()

	expansions, err := r.expander.Expand(ctx, text)
	if err != nil {
		logger.Warn("query expansion failed, continuing without", "err", err)
		return nil
	}
	return expansions
}

func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Retrieval.EmbedTimeout())
	defer cancel()

	vector, err := r.embedder.EmbedText(ctx, text, ai.PurposeQuery)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	if len(vector) == 0 {
		return nil, &ProviderError{Err: ai.ErrNoEmbedding}
	}
	return vector, nil
}

// resolveFilters returns the explicit filters of q, or filters derived from
// the query text and its expansions when q has none.
func (r *Retriever) resolveFilters(ctx context.Context, q Query, expansions []string, logger *slog.Logger) (core.Filters, bool) {
	if q.Filters != nil {
		return *q.Filters, false
	}

	var f core.Filters
	if rng, ok := yearRange(q.Text); ok {
		f.Range = rng
	}

	if r.vocabulary != nil {
		skills, topics, err := r.vocabulary.Vocabulary(ctx)
		if err != nil {
			logger.Warn("vocabulary lookup failed, skipping skill and tag filters", "err", err)
		} else {
			text := q.Text
			if len(expansions) > 0 {
				text += " " + strings.Join(expansions, " ")
			}
			f.Skills = matchVocabulary(text, skills, r.config.Retrieval.FuzzyMatch)
			f.Tags = matchVocabulary(text, topics, r.config.Retrieval.FuzzyMatch)
		}
	}
	return f, !f.IsEmpty()
}

func (r *Retriever) threshold(q Query, filters core.Filters) float64 {
	if q.MinSimilarity != nil {
		return *q.MinSimilarity
	}
	return adaptiveThreshold(r.config.Retrieval, len(core.Terms(q.Text)), !filters.IsEmpty())
}

// keywords lists the query terms first, then expansion terms, capped at
// MaxKeywords.
func (r *Retriever) keywords(text string, expansions []string) []string {
	terms := core.Terms(text + " " + strings.Join(expansions, " "))
	if n := r.config.Retrieval.MaxKeywords; n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// validateMatches drops unusable matches and turns the rest into candidates.
// Lexical matches get the baseline similarity.
func (r *Retriever) validateMatches(matches []*core.SearchMatch, path scoring.Path) ([]scoring.Candidate, int) {
	rc := r.config.Retrieval
	candidates := make([]scoring.Candidate, 0, len(matches))
	seen := make(map[core.ID]bool, len(matches))
	dropped := 0

	for _, m := range matches {
		if m == nil || m.Segment == nil || m.Segment.ID == 0 || seen[m.Segment.ID] {
			dropped++
			continue
		}
		content := strings.TrimSpace(m.Segment.Content)
		if content == "" || len([]rune(content)) < rc.MinContentRunes {
			dropped++
			continue
		}
		seen[m.Segment.ID] = true

		similarity := float64(m.Similarity)
		if path == scoring.PathLexical {
			similarity = rc.LexicalBaseline
		}
		candidates = append(candidates, scoring.Candidate{
			Segment:    m.Segment,
			Similarity: scoring.ClampUnit(similarity),
			Path:       path,
		})
	}
	return candidates, dropped
}
