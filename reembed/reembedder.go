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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of segments to embed per call
	BatchSize int

	// ReportInterval is how often to report progress (number of segments)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary describes a run.
type Summary struct {
	Segments  int
	Documents int
	// Dimensions is the vector size produced by the embedder.
	Dimensions int
	// PreviousDimensions is the vector size stored before the run, 0 when
	// no segment had a vector.
	PreviousDimensions int
	Elapsed            time.Duration
}

// Reembedder orchestrates the reembedding of all segments in a store.
type Reembedder struct {
	repo      storage.SegmentRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *SegmentIterator
	recorder  Recorder
	clock     func() time.Time
	logger    *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithRecorder reports every reembedded batch to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Reembedder) {
		r.recorder = rec
	}
}

// WithClock sets the time source used for elapsed time and rates.
func WithClock(clock func() time.Time) Option {
	return func(r *Reembedder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.SegmentRepository, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, max(config.MaxRetries, 1), config.RetryDelay),
		iterator:  NewSegmentIterator(repo, config.BatchSize),
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reembed")
	return r, nil
}

// Run reembeds every stored segment with the configured embedder.
// Progress is reported to the configured writer. On failure the returned
// Summary covers the batches stored before the error.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	stats, err := r.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments: %w", err)
	}

	if stats.Segments == 0 {
		fmt.Fprintf(r.progress, "No segments found in store (0 segments)\n")
		return &Summary{}, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d segments from %d documents (batch size: %d)\n",
		stats.Segments, stats.Documents, r.iterator.batchSize)
	if stats.Dimensions > 0 {
		r.logger.Info("replacing existing vectors", "dimensions", stats.Dimensions, "with_vectors", stats.WithVectors)
	}

	tracker := newProgress(r.progress, stats, r.config.ReportInterval, r.recorder, r.clock)
	dims := 0
	err = r.iterator.ForEach(ctx, func(segments []*core.EvidenceSegment) error {
		got, err := r.processor.Process(ctx, segments)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		if dims != 0 && got != dims {
			return fmt.Errorf("%w: batch produced %d dimensions, earlier batches %d", ErrEmbeddingMismatch, got, dims)
		}
		dims = got
		tracker.record(segments, got)
		return nil
	})
	if err != nil {
		summary := tracker.summary()
		r.logger.Error("reembedding stopped", "processed", summary.Segments, "documents", summary.Documents, "err", err)
		return summary, err
	}

	summary := tracker.finish()
	for doc, n := range tracker.perDocument() {
		r.logger.Debug("document reembedded", "document", doc, "segments", n)
	}
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d segments of %d documents in %v (%.1f segments/sec)\n",
		summary.Segments, summary.Documents, summary.Elapsed.Round(time.Second), float64(summary.Segments)/max(summary.Elapsed.Seconds(), 1e-9))

	return summary, nil
}
