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


package vitae

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/ai/openai"
	"github.com/poiesic/vitae/config"
	"github.com/poiesic/vitae/extraction"
	"github.com/poiesic/vitae/ingestion"
	"github.com/poiesic/vitae/metrics"
	"github.com/poiesic/vitae/reembed"
	"github.com/poiesic/vitae/retrieval"
	"github.com/poiesic/vitae/storage"
	"github.com/poiesic/vitae/storage/badger"
	"github.com/poiesic/vitae/storage/pgvector"
	"github.com/poiesic/vitae/tokens"
	"github.com/prometheus/client_golang/prometheus"
)

// Database ties a segment store to the AI provider, token budget and
// configuration shared by extraction, ingestion and retrieval.
type Database struct {
	segments storage.SegmentRepository
	states   storage.DocumentStateRepository
	backend  io.Closer
	provider ai.AIProvider
	config   *config.Config
	budget   *tokens.Budget
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	config   *config.Config
	provider ai.AIProvider
	counter  tokens.Counter
	registry prometheus.Registerer
	postgres *pgvector.Config
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the embedding and expansion service settings.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithConfig sets the tuning configuration.
func WithConfig(cfg *config.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.config = cfg
	}
}

// WithProvider uses provider instead of an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithCounter sets the token counter. Default: tiktoken cl100k_base.
func WithCounter(counter tokens.Counter) DatabaseOption {
	return func(o *databaseOptions) {
		o.counter = counter
	}
}

// WithRegistry registers the metrics collectors with reg.
func WithRegistry(reg prometheus.Registerer) DatabaseOption {
	return func(o *databaseOptions) {
		o.registry = reg
	}
}

// WithPostgres stores segments in PostgreSQL instead of BadgerDB.
// The file path passed to NewDatabase is ignored.
func WithPostgres(cfg pgvector.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgres = &cfg
	}
}

// WithInMemory keeps the BadgerDB store in memory.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		config:   config.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.config.Validate(); err != nil {
		return nil, err
	}

	m := metrics.New(options.registry)
	counter := options.counter
	if counter == nil {
		counter = tokens.NewTiktokenCounter(tokens.DefaultEncoding, options.logger)
	}
	budget, err := tokens.NewBudget(counter, options.config.Budget, tokens.WithTruncationRecorder(m))
	if err != nil {
		return nil, err
	}

	segments, states, backend, err := openStore(filePath, options)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		segments: segments,
		states:   states,
		backend:  backend,
		provider: provider,
		config:   options.config,
		budget:   budget,
		metrics:  m,
		logger:   options.logger,
	}, nil
}

func openStore(filePath string, options *databaseOptions) (storage.SegmentRepository, storage.DocumentStateRepository, io.Closer, error) {
	if options.postgres != nil {
		cfg := *options.postgres
		if cfg.Logger == nil {
			cfg.Logger = options.logger
		}
		return pgvector.NewRepositories(context.Background(), cfg)
	}
	if options.inMemory {
		return badger.NewMemoryRepositories()
	}
	return badger.NewRepositories(filePath)
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	var errs []error
	if err := db.states.Close(); err != nil {
		db.logger.Error("error closing state repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.segments.Close(); err != nil {
		db.logger.Error("error closing segment repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) SegmentRepository() storage.SegmentRepository {
	return db.segments
}

func (db *Database) StateRepository() storage.DocumentStateRepository {
	return db.states
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

func (db *Database) Config() *config.Config {
	return db.config
}

func (db *Database) Metrics() *metrics.Metrics {
	return db.metrics
}

// NewExtractor returns an extractor over the shared token budget.
func (db *Database) NewExtractor(opts ...extraction.Option) (*extraction.Extractor, error) {
	base := []extraction.Option{
		extraction.WithMetrics(db.metrics),
		extraction.WithLogger(db.logger),
	}
	return extraction.NewExtractor(db.budget, append(base, opts...)...)
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	extractor, err := db.NewExtractor()
	if err != nil {
		return nil, err
	}
	base := []ingestion.Option{
		ingestion.WithConfig(db.config),
		ingestion.WithLogger(db.logger),
	}
	return ingestion.NewPipeline(db.segments, db.states, extractor, db.provider, append(base, opts...)...)
}

// NewRetriever returns a retriever whose implicit filters draw on the
// vocabulary of stored segments.
func (db *Database) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	base := []retrieval.Option{
		retrieval.WithConfig(db.config),
		retrieval.WithLogger(db.logger),
		retrieval.WithMetrics(db.metrics),
		retrieval.WithVocabularySource(db.segments),
	}
	return retrieval.NewRetriever(db.segments, db.segments, db.provider, append(base, opts...)...)
}

// NewReembedder returns a reembedder writing progress to w.
func (db *Database) NewReembedder(cfg *reembed.Config, w io.Writer) (*reembed.Reembedder, error) {
	if cfg == nil {
		cfg = reembed.DefaultConfig()
		cfg.MaxRetries = db.config.Resilience.MaxAttempts
		cfg.RetryDelay = db.config.Resilience.RetryBaseDelay()
	}
	return reembed.NewReembedder(db.segments, db.provider.Embedder(), cfg, w,
		reembed.WithRecorder(db.metrics),
		reembed.WithLogger(db.logger),
	)
}
