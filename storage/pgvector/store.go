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


package pgvector

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/vitae/storage"
)

const (
	DefaultSegmentTable = "evidence_segments"
	DefaultStateTable   = "document_states"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Config holds connection and schema settings.
type Config struct {
	// ConnectionString in PostgreSQL URL or DSN form.
	ConnectionString string

	// SegmentTable and StateTable default to DefaultSegmentTable and DefaultStateTable.
	SegmentTable string
	StateTable   string

	// VectorDimension fixes the embedding column width and enables an HNSW
	// index. Zero leaves the column unconstrained.
	VectorDimension int

	// CreateSchema runs EnsureSchema when the store opens.
	CreateSchema bool

	Logger *slog.Logger
}

func (c *Config) normalize() error {
	if c.ConnectionString == "" {
		return ErrConnectionStringRequired
	}
	if c.SegmentTable == "" {
		c.SegmentTable = DefaultSegmentTable
	}
	if c.StateTable == "" {
		c.StateTable = DefaultStateTable
	}
	for _, name := range []string{c.SegmentTable, c.StateTable} {
		if !identifier.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
	}
	if c.VectorDimension < 0 {
		c.VectorDimension = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Store implements storage.SegmentRepository and storage.DocumentStateRepository
// over a pgx connection pool.
type Store struct {
	pool      *pgxpool.Pool
	segments  string
	states    string
	dimension int
	logger    *slog.Logger
	closeOnce sync.Once
}

var (
	_ storage.SegmentRepository       = (*Store)(nil)
	_ storage.DocumentStateRepository = (*Store)(nil)
)

// NewRepositories opens a store and returns it as both repositories.
// Caller must close the store when done.
func NewRepositories(ctx context.Context, cfg Config) (storage.SegmentRepository, storage.DocumentStateRepository, *Store, error) {
	store, err := Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, store, store, nil
}

// Open connects, registers the pgvector types on every connection and fails
// fast when the vector extension is missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Store{
		pool:      pool,
		segments:  cfg.SegmentTable,
		states:    cfg.StateTable,
		dimension: cfg.VectorDimension,
		logger:    cfg.Logger.With("component", "pgvector-store", "table", cfg.SegmentTable),
	}
	if err := s.Health(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if cfg.CreateSchema {
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Health checks connectivity and the vector extension.
func (s *Store) Health(ctx context.Context) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')",
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !exists {
		return ErrExtensionMissing
	}
	return nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.segments, s.states, s.dimension) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	s.logger.Debug("schema ensured", "dimension", s.dimension)
	return nil
}

// Close closes the pool. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(s.pool.Close)
	return nil
}

func schemaStatements(segments, states string, dimension int) []string {
	vectorType := "vector"
	if dimension > 0 {
		vectorType = fmt.Sprintf("vector(%d)", dimension)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			document_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			organization TEXT NOT NULL DEFAULT '',
			start_date TIMESTAMPTZ,
			end_date TIMESTAMPTZ,
			topics TEXT[] NOT NULL DEFAULT '{}',
			skills TEXT[] NOT NULL DEFAULT '{}',
			token_count INTEGER NOT NULL DEFAULT 0,
			truncated BOOLEAN NOT NULL DEFAULT FALSE,
			embedding %s,
			inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, segments, vectorType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`, segments, segments),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			document_id TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			segment_count INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, states),
	}
	// ANN indexes need a fixed dimension
	if dimension > 0 {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			segments, segments))
	}
	return stmts
}
