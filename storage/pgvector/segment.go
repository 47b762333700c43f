package pgvector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
)

// Search returns segments at or above threshold cosine similarity.
func (s *Store) Search(ctx context.Context, vector []float32, threshold float32, limit int, _ core.Filters) ([]*core.SearchMatch, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store %d", storage.ErrDimensionMismatch, len(vector), s.dimension)
	}

	q := similarityQuery(s.segments, pgvector.NewVector(vector), threshold, limit)
	return s.queryMatches(ctx, q, limit)
}

// SearchText matches keyword terms against content, skills and topics.
// Segments matching more terms rank first; ties break on ID.
func (s *Store) SearchText(ctx context.Context, keywords []string, _ core.Filters, limit int) ([]*core.SearchMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	terms := core.Terms(strings.Join(keywords, " "))
	if len(terms) == 0 {
		return nil, nil
	}
	return s.queryMatches(ctx, keywordQuery(s.segments, terms, limit), limit)
}

func (s *Store) queryMatches(ctx context.Context, q *query, limit int) ([]*core.SearchMatch, error) {
	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	defer rows.Close()

	matches := make([]*core.SearchMatch, 0, limit)
	for rows.Next() {
		var similarity float64
		seg, err := scanSegment(rows, &similarity)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &core.SearchMatch{Segment: seg, Similarity: float32(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return matches, nil
}

// Upsert stores segments keyed by their content-derived ID in one batch.
func (s *Store) Upsert(ctx context.Context, segments ...*core.EvidenceSegment) ([]*core.EvidenceSegment, error) {
	if len(segments) == 0 {
		return segments, nil
	}

	upsertSQL := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			document_id = EXCLUDED.document_id,
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			title = EXCLUDED.title,
			organization = EXCLUDED.organization,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			topics = EXCLUDED.topics,
			skills = EXCLUDED.skills,
			token_count = EXCLUDED.token_count,
			truncated = EXCLUDED.truncated,
			embedding = EXCLUDED.embedding`, s.segments, segmentColumns)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
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

		var embedding *pgvector.Vector
		if len(seg.Vector) > 0 {
			v := pgvector.NewVector(seg.Vector)
			embedding = &v
		}
		batch.Queue(upsertSQL,
			toDB(seg.ID), seg.Fingerprint, seg.DocumentID, string(seg.Kind), seg.Content,
			seg.Summary, seg.Title, seg.Organization, nullTime(seg.Start), nullTime(seg.End),
			nonNil(seg.Topics), nonNil(seg.Skills), seg.TokenCount, seg.Truncated,
			embedding, seg.InsertedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range batch.Len() {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("failed to store segment %d: %w", i, err)
		}
	}
	return segments, nil
}

// DeleteByDocument removes all segments of a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", s.segments), documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete segments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetSegment retrieves a single segment by ID.
func (s *Store) GetSegment(ctx context.Context, id core.ID) (*core.EvidenceSegment, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", segmentColumns, s.segments), toDB(id))
	seg, err := scanSegment(row, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return seg, err
}

// GetSegmentsByDocument retrieves the segments of a document ordered by ID.
func (s *Store) GetSegmentsByDocument(ctx context.Context, documentID string) ([]*core.EvidenceSegment, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE document_id = $1 ORDER BY id", segmentColumns, s.segments), documentID)
	if err != nil {
		return nil, err
	}
	return collectSegments(rows)
}

// UpdateVectors replaces the vectors of existing segments in one transaction.
func (s *Store) UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		updateSQL := fmt.Sprintf("UPDATE %s SET embedding = $2 WHERE id = $1", s.segments)
		for id, vector := range vectors {
			tag, err := tx.Exec(ctx, updateSQL, toDB(id), pgvector.NewVector(vector))
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return storage.ErrNotFound
			}
		}
		return nil
	})
}

// ForEachSegment pages through segments by ID. Each page is read completely
// before fn runs, so fn may write.
func (s *Store) ForEachSegment(ctx context.Context, batchSize int, fn func([]*core.EvidenceSegment) error) error {
	if batchSize <= 0 {
		return storage.ErrInvalidQuery
	}

	first := fmt.Sprintf("SELECT %s FROM %s ORDER BY id LIMIT $1", segmentColumns, s.segments)
	next := fmt.Sprintf("SELECT %s FROM %s WHERE id > $2 ORDER BY id LIMIT $1", segmentColumns, s.segments)

	var last *int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var rows pgx.Rows
		var err error
		if last == nil {
			rows, err = s.pool.Query(ctx, first, batchSize)
		} else {
			rows, err = s.pool.Query(ctx, next, batchSize, *last)
		}
		if err != nil {
			return err
		}
		page, err := collectSegments(rows)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < batchSize {
			return nil
		}
		id := toDB(page[len(page)-1].ID)
		last = &id
	}
}

// Stats counts stored segments, vectors and documents.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*), count(embedding), count(DISTINCT document_id),
		coalesce(max(vector_dims(embedding)), 0) FROM %s`, s.segments),
	).Scan(&stats.Segments, &stats.WithVectors, &stats.Documents, &stats.Dimensions)
	return stats, err
}

// Vocabulary returns the distinct skills and topics across stored segments.
func (s *Store) Vocabulary(ctx context.Context) ([]string, []string, error) {
	skills, err := s.distinct(ctx, "skills")
	if err != nil {
		return nil, nil, err
	}
	topics, err := s.distinct(ctx, "topics")
	if err != nil {
		return nil, nil, err
	}
	return skills, topics, nil
}

func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT unnest(%s) AS v FROM %s ORDER BY v", column, s.segments))
	if err != nil {
		return nil, err
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	values = firstSpellings(values)
	slices.Sort(values)
	return values, nil
}

func collectSegments(rows pgx.Rows) ([]*core.EvidenceSegment, error) {
	defer rows.Close()
	var out []*core.EvidenceSegment
	for rows.Next() {
		seg, err := scanSegment(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// scanSegment reads segmentColumns, plus a trailing similarity when given.
func scanSegment(row pgx.Row, similarity *float64) (*core.EvidenceSegment, error) {
	var (
		seg        core.EvidenceSegment
		id         int64
		kind       string
		start, end *time.Time
		embedding  *pgvector.Vector
	)
	dest := []any{
		&id, &seg.Fingerprint, &seg.DocumentID, &kind, &seg.Content, &seg.Summary,
		&seg.Title, &seg.Organization, &start, &end, &seg.Topics, &seg.Skills,
		&seg.TokenCount, &seg.Truncated, &embedding, &seg.InsertedAt,
	}
	if similarity != nil {
		dest = append(dest, similarity)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	seg.ID = fromDB(id)
	seg.Kind = core.SegmentKind(kind)
	seg.Start = timeOf(start)
	seg.End = timeOf(end)
	seg.InsertedAt = seg.InsertedAt.UTC()
	if embedding != nil {
		seg.Vector = embedding.Slice()
	}
	return &seg, nil
}
