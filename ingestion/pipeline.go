package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/extraction"
	"github.com/poiesic/vitae/storage"
)

// Outcome describes what ingestion did with one document.
type Outcome string

const (
	OutcomeIngested  Outcome = "ingested"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// DocumentReport is the result of ingesting one document.
type DocumentReport struct {
	DocumentID string
	Outcome    Outcome
	// Segments is the number of segments stored for the document.
	Segments int
	// Replaced is the number of previous segments removed.
	Replaced int
	Err      error
}

// Report lists the outcome of every document of one Ingest call, in input order.
type Report struct {
	RunID     string
	Documents []DocumentReport
}

// Count returns the number of documents with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, d := range r.Documents {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// Segments returns the number of segments stored by the call.
func (r *Report) Segments() int {
	n := 0
	for _, d := range r.Documents {
		n += d.Segments
	}
	return n
}

// Err joins the errors of failed documents, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, d := range r.Documents {
		if d.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.DocumentID, d.Err))
		}
	}
	return errors.Join(errs...)
}

// Pipeline orchestrates the ingestion of source documents.
// It manages concurrent extraction, embedding and storage of segments.
type Pipeline struct {
	segments  storage.SegmentRepository
	states    storage.DocumentStateRepository
	extractor *extraction.Extractor
	pool      *ants.Pool
	stages    []processor
	config    *config.Config
	force     bool
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithConfig sets the retry policy used for embedding calls.
// Default is config.DefaultConfig().
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.config = cfg
		return nil
	}
}

// WithForce re-ingests documents even when their content hash is unchanged.
func WithForce(force bool) Option {
	return func(p *Pipeline) error {
		p.force = force
		return nil
	}
}

// WithClock sets the time source for state timestamps.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) error {
		if clock != nil {
			p.clock = clock
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	segments storage.SegmentRepository,
	states storage.DocumentStateRepository,
	extractor *extraction.Extractor,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if segments == nil {
		return nil, ErrSegmentRepositoryRequired
	}
	if states == nil {
		return nil, ErrStateRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		segments:  segments,
		states:    states,
		extractor: extractor,
		pool:      pool,
		config:    config.DefaultConfig(),
		clock:     time.Now,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create processors after options are applied (so they get final config)
	embeddingProc, err := newEmbeddingProcessor(provider.Embedder(),
		p.config.Resilience.MaxAttempts, p.config.Resilience.RetryBaseDelay(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.stages = []processor{
		&validationProcessor{limits: extractor.Limits()},
		embeddingProc,
	}

	return p, nil
}

// Ingest extracts, embeds and stores the segments of docs. Documents whose
// content hash matches their stored state are skipped. Per-document failures
// are reported in the Report and do not stop the batch; the returned error is
// non-nil only when the batch could not run at all.
func (p *Pipeline) Ingest(ctx context.Context, docs ...*core.SourceDocument) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := extraction.NewRun()
	report := &Report{RunID: run.ID(), Documents: make([]DocumentReport, len(docs))}
	logger := p.logger.With("run", run.ID())
	logger.Info("ingesting documents", "documents", len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		if doc == nil {
			report.Documents[i] = DocumentReport{DocumentID: documentID(doc, i), Outcome: OutcomeFailed, Err: core.ErrInvalidDocument}
			continue
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			report.Documents[i] = p.ingestDocument(ctx, run, doc, logger)
		})
		if err != nil {
			wg.Done()
			report.Documents[i] = DocumentReport{DocumentID: documentID(doc, i), Outcome: OutcomeFailed, Err: err}
		}
	}
	wg.Wait()

	logger.Info("ingestion complete",
		"ingested", report.Count(OutcomeIngested),
		"unchanged", report.Count(OutcomeUnchanged),
		"failed", report.Count(OutcomeFailed),
		"segments", report.Segments())
	return report, nil
}

func (p *Pipeline) ingestDocument(ctx context.Context, run *extraction.Run, doc *core.SourceDocument, logger *slog.Logger) DocumentReport {
	key := doc.Key()
	rep := DocumentReport{DocumentID: key, Outcome: OutcomeFailed}
	logger = logger.With("document", key)
	fail := func(stage string, err error) DocumentReport {
		logger.Error("error ingesting document", "stage", stage, "err", err)
		rep.Err = fmt.Errorf("%s: %w", stage, err)
		return rep
	}

	// 1. Change detection
	hash := doc.ContentHash()
	state, err := p.states.LoadState(ctx, key)
	switch {
	case err == nil && state.ContentHash == hash && !p.force:
		logger.Debug("document unchanged, skipping")
		rep.Outcome = OutcomeUnchanged
		rep.Segments = state.SegmentCount
		return rep
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fail("load state", err)
	}

	// 2. Extraction
	segments, err := p.extractor.Extract(ctx, run, doc)
	if err != nil {
		return fail("extract", err)
	}

	// 3. Validation and embedding
	for _, stage := range p.stages {
		if err := stage.process(ctx, segments); err != nil {
			return fail("process", err)
		}
	}

	// 4. Supersede the previous segments
	replaced, err := p.segments.DeleteByDocument(ctx, key)
	if err != nil {
		return fail("delete", err)
	}
	if len(segments) > 0 {
		if _, err := p.segments.Upsert(ctx, segments...); err != nil {
			return fail("upsert", err)
		}
	}

	// 5. Remember what was ingested
	err = p.states.SaveState(ctx, &core.DocumentState{
		DocumentID:   key,
		ContentHash:  hash,
		SegmentCount: len(segments),
		UpdatedAt:    p.clock().UTC(),
	})
	if err != nil {
		return fail("save state", err)
	}

	logger.Info("document ingested", "segments", len(segments), "replaced", replaced)
	rep.Outcome = OutcomeIngested
	rep.Segments = len(segments)
	rep.Replaced = replaced
	return rep
}

// Forget removes the segments and state of a document.
func (p *Pipeline) Forget(ctx context.Context, documentID string) (int, error) {
	removed, err := p.segments.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return removed, p.states.DeleteState(ctx, documentID)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func documentID(doc *core.SourceDocument, i int) string {
	if doc == nil {
		return fmt.Sprintf("#%d", i)
	}
	return doc.Key()
}
