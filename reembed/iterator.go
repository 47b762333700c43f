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

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

const (
	// DefaultBatchSize is the default number of segments handed out per batch
	DefaultBatchSize = 100
)

// SegmentIterator iterates over all stored segments in batches.
type SegmentIterator struct {
	repo      storage.SegmentRepository
	batchSize int
}

// NewSegmentIterator creates a new segment iterator.
// batchSize: number of segments per batch; values <= 0 use DefaultBatchSize
func NewSegmentIterator(repo storage.SegmentRepository, batchSize int) *SegmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &SegmentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of segments.
// Iteration stops on first error from fn or when all segments are processed.
// Context cancellation is checked between batches.
func (it *SegmentIterator) ForEach(ctx context.Context, fn func([]*core.EvidenceSegment) error) error {
	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return it.repo.ForEachSegment(ctx, it.batchSize, func(batch []*core.EvidenceSegment) error {
		if err := fn(batch); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	})
}
