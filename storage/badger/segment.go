package badger

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// SegmentRepository implements storage.SegmentRepository for BadgerDB.
type SegmentRepository struct {
	backend *Backend
}

var _ storage.SegmentRepository = (*SegmentRepository)(nil)

// NewSegmentRepository creates a new SegmentRepository.
func NewSegmentRepository(backend *Backend) (*SegmentRepository, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &SegmentRepository{backend: backend}, nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *SegmentRepository) Close() error {
	return nil
}

// Search delegates to the backend.
func (r *SegmentRepository) Search(ctx context.Context, vector []float32, threshold float32, limit int, _ core.Filters) ([]*core.SearchMatch, error) {
	return r.backend.FindSimilar(ctx, vector, threshold, limit)
}

// SearchText looks keywords up in the term index. Segments matching more
// keywords rank first; ties break on ID.
func (r *SegmentRepository) SearchText(ctx context.Context, keywords []string, _ core.Filters, limit int) ([]*core.SearchMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	terms := core.Terms(strings.Join(keywords, " "))
	if len(terms) == 0 {
		return nil, nil
	}

	hits := make(map[core.ID]int)
	var segments []*core.EvidenceSegment

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, term := range terms {
			ids, err := r.scanIndex(tx, makePartialIndexKey(segmentTermPrefix, term))
			if err != nil {
				return err
			}
			for _, id := range ids {
				hits[id]++
			}
		}

		for id := range hits {
			seg, err := r.readSegment(tx, id)
			if err != nil {
				return err
			}
			if seg == nil {
				continue
			}
			segments = append(segments, seg)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(segments, func(a, b *core.EvidenceSegment) int {
		if hits[a.ID] != hits[b.ID] {
			return hits[b.ID] - hits[a.ID]
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	if len(segments) > limit {
		segments = segments[:limit]
	}

	results := make([]*core.SearchMatch, 0, len(segments))
	for _, seg := range segments {
		results = append(results, &core.SearchMatch{Segment: seg})
	}
	return results, nil
}

// Upsert stores segments keyed by their content-derived ID.
func (r *SegmentRepository) Upsert(ctx context.Context, segments ...*core.EvidenceSegment) ([]*core.EvidenceSegment, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, seg := range segments {
			if seg.Fingerprint == "" {
				seg.Fingerprint = core.Fingerprint(seg.Content)
			}
			if seg.ID == 0 {
				seg.ID = core.IDFromContent(seg.Fingerprint)
			}
			if seg.InsertedAt.IsZero() {
				seg.InsertedAt = now
			}

			// Drop indices of a previous version stored under the same ID
			old, err := r.readSegment(tx, seg.ID)
			if err != nil {
				return err
			}
			if old != nil {
				if err := r.deleteIndices(tx, old); err != nil {
					return err
				}
			}

			if err := tx.Set(makeSegmentKey(seg.ID), storage.MarshalSegment(seg)); err != nil {
				return err
			}
			if err := r.writeIndices(tx, seg); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return segments, nil
}

// DeleteByDocument removes all segments of a document.
func (r *SegmentRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.scanIndex(tx, makePartialIndexKey(segmentDocPrefix, documentID))
		if err != nil {
			return err
		}

		for _, id := range ids {
			seg, err := r.readSegment(tx, id)
			if err != nil {
				return err
			}
			if seg == nil {
				// Dangling index entry
				if err := tx.Delete(makeSegmentDocKey(documentID, id)); err != nil {
					return err
				}
				continue
			}
			if err := r.deleteIndices(tx, seg); err != nil {
				return err
			}
			if err := tx.Delete(makeSegmentKey(id)); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)

	return deleted, err
}

// GetSegment retrieves a single segment by ID.
func (r *SegmentRepository) GetSegment(ctx context.Context, id core.ID) (*core.EvidenceSegment, error) {
	var seg *core.EvidenceSegment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		seg, err = r.readSegment(tx, id)
		if err != nil {
			return err
		}
		if seg == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// GetSegmentsByDocument retrieves the segments of a document ordered by ID.
func (r *SegmentRepository) GetSegmentsByDocument(ctx context.Context, documentID string) ([]*core.EvidenceSegment, error) {
	var segments []*core.EvidenceSegment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.scanIndex(tx, makePartialIndexKey(segmentDocPrefix, documentID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			seg, err := r.readSegment(tx, id)
			if err != nil {
				return err
			}
			if seg != nil {
				segments = append(segments, seg)
			}
		}
		return nil
	}, false)
	return segments, err
}

// UpdateVectors replaces the vectors of existing segments.
func (r *SegmentRepository) UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for id, vector := range vectors {
			seg, err := r.readSegment(tx, id)
			if err != nil {
				return err
			}
			if seg == nil {
				return storage.ErrNotFound
			}
			seg.Vector = vector
			if err := tx.Set(makeSegmentKey(id), storage.MarshalSegment(seg)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ForEachSegment loads every segment, then hands them to fn in batches
// outside the read transaction so fn may write.
func (r *SegmentRepository) ForEachSegment(ctx context.Context, batchSize int, fn func([]*core.EvidenceSegment) error) error {
	if batchSize <= 0 {
		return storage.ErrInvalidQuery
	}

	var all []*core.EvidenceSegment
	err := r.backend.scanSegments(ctx, func(seg *core.EvidenceSegment) error {
		all = append(all, seg)
		return nil
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(all); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(all))
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Stats counts stored segments, vectors and documents.
func (r *SegmentRepository) Stats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats
	documents := make(map[string]struct{})
	err := r.backend.scanSegments(ctx, func(seg *core.EvidenceSegment) error {
		stats.Segments++
		documents[seg.DocumentID] = struct{}{}
		if len(seg.Vector) > 0 {
			stats.WithVectors++
			if stats.Dimensions == 0 {
				stats.Dimensions = len(seg.Vector)
			}
		}
		return nil
	})
	stats.Documents = len(documents)
	return stats, err
}

// Vocabulary returns the distinct skills and topics across stored segments,
// keeping the first spelling seen of each.
func (r *SegmentRepository) Vocabulary(ctx context.Context) ([]string, []string, error) {
	skills := make(map[string]string)
	topics := make(map[string]string)
	err := r.backend.scanSegments(ctx, func(seg *core.EvidenceSegment) error {
		for _, s := range seg.Skills {
			if _, ok := skills[strings.ToLower(s)]; !ok {
				skills[strings.ToLower(s)] = s
			}
		}
		for _, t := range seg.Topics {
			if _, ok := topics[strings.ToLower(t)]; !ok {
				topics[strings.ToLower(t)] = t
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sortedValues(skills), sortedValues(topics), nil
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// indexTerms returns the distinct terms a segment is indexed under.
func indexTerms(seg *core.EvidenceSegment) []string {
	text := seg.Content + " " + strings.Join(seg.Skills, " ") + " " + strings.Join(seg.Topics, " ")
	return core.Terms(text)
}

func (r *SegmentRepository) writeIndices(tx *badger.Txn, seg *core.EvidenceSegment) error {
	id := storage.MarshalID(seg.ID)
	if err := tx.Set(makeSegmentDocKey(seg.DocumentID, seg.ID), id); err != nil {
		return err
	}
	for _, term := range indexTerms(seg) {
		if err := tx.Set(makeSegmentTermKey(term, seg.ID), id); err != nil {
			return err
		}
	}
	return nil
}

func (r *SegmentRepository) deleteIndices(tx *badger.Txn, seg *core.EvidenceSegment) error {
	if err := tx.Delete(makeSegmentDocKey(seg.DocumentID, seg.ID)); err != nil {
		return err
	}
	for _, term := range indexTerms(seg) {
		if err := tx.Delete(makeSegmentTermKey(term, seg.ID)); err != nil {
			return err
		}
	}
	return nil
}

// scanIndex returns the IDs stored under an index prefix.
func (r *SegmentRepository) scanIndex(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// readSegment returns nil, nil when the segment doesn't exist.
func (r *SegmentRepository) readSegment(tx *badger.Txn, id core.ID) (*core.EvidenceSegment, error) {
	item, err := tx.Get(makeSegmentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var seg *core.EvidenceSegment
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		seg, unmarshalErr = storage.UnmarshalSegment(val)
		return unmarshalErr
	})
	return seg, err
}
