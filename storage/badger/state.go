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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// DocumentStateRepository implements storage.DocumentStateRepository for BadgerDB.
type DocumentStateRepository struct {
	backend *Backend
}

var _ storage.DocumentStateRepository = (*DocumentStateRepository)(nil)

// NewDocumentStateRepository creates a new DocumentStateRepository.
func NewDocumentStateRepository(backend *Backend) *DocumentStateRepository {
	return &DocumentStateRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is closed by its owner.
func (r *DocumentStateRepository) Close() error {
	return nil
}

// SaveState persists the state of a document. A zero UpdatedAt is stamped
// with the current time.
func (r *DocumentStateRepository) SaveState(ctx context.Context, state *core.DocumentState) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if state.UpdatedAt.IsZero() {
			state.UpdatedAt = time.Now().UTC()
		}
		key := makeDocumentStateKey(state.DocumentID)
		if err := tx.Set(key, storage.MarshalDocumentState(state)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadState retrieves the state of a document.
func (r *DocumentStateRepository) LoadState(ctx context.Context, documentID string) (*core.DocumentState, error) {
	var state *core.DocumentState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentStateKey(documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			state, unmarshalErr = storage.UnmarshalDocumentState(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteState forgets a document.
func (r *DocumentStateRepository) DeleteState(ctx context.Context, documentID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeDocumentStateKey(documentID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
