package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// SaveState creates or replaces the state of a document.
func (s *Store) SaveState(ctx context.Context, state *core.DocumentState) error {
	if state == nil || state.DocumentID == "" {
		return storage.ErrInvalidQuery
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (document_id, content_hash, segment_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			segment_count = EXCLUDED.segment_count,
			updated_at = EXCLUDED.updated_at`, s.states),
		state.DocumentID, state.ContentHash, state.SegmentCount, state.UpdatedAt)
	return err
}

// LoadState retrieves the state of a document.
func (s *Store) LoadState(ctx context.Context, documentID string) (*core.DocumentState, error) {
	state := &core.DocumentState{DocumentID: documentID}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT content_hash, segment_count, updated_at FROM %s WHERE document_id = $1", s.states),
		documentID,
	).Scan(&state.ContentHash, &state.SegmentCount, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	state.UpdatedAt = state.UpdatedAt.UTC()
	return state, nil
}

// DeleteState forgets a document.
func (s *Store) DeleteState(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.states), documentID)
	return err
}
