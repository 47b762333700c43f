package badger

import (
	"context"
	"testing"

	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) (storage.SegmentRepository, storage.DocumentStateRepository) {
	t.Helper()
	segments, states, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return segments, states
}

func TestSegmentRepository_UpsertAndGet(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	seg := testSegment("doc-a", "Built the billing service in Go", []float32{1, 0}, 2021)
	stored, err := segments.Upsert(ctx, seg)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	assert.NotZero(t, stored[0].ID)
	assert.Equal(t, core.Fingerprint(seg.Content), stored[0].Fingerprint)
	assert.Equal(t, core.IDFromContent(stored[0].Fingerprint), stored[0].ID)
	assert.False(t, stored[0].InsertedAt.IsZero())

	got, err := segments.GetSegment(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seg.Content, got.Content)
	assert.Equal(t, []float32{1, 0}, got.Vector)

	_, err = segments.GetSegment(ctx, core.ID(12345))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSegmentRepository_UpsertIsKeyedByFingerprint(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := segments.Upsert(ctx, testSegment("doc-a", "Same text", nil, 2021))
	require.NoError(t, err)
	_, err = segments.Upsert(ctx, testSegment("doc-a", "Same text", []float32{0, 1}, 2021))
	require.NoError(t, err)

	stats, err := segments.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Segments)
	assert.Equal(t, 1, stats.WithVectors)
	assert.Equal(t, 2, stats.Dimensions)
}

func TestSegmentRepository_DeleteByDocument(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := segments.Upsert(ctx,
		testSegment("doc-a", "Kubernetes migration for payments", nil, 2021),
		testSegment("doc-a", "Mentored four engineers", nil, 2021),
		testSegment("doc-b", "Kubernetes cluster upgrades", nil, 2020),
	)
	require.NoError(t, err)

	deleted, err := segments.DeleteByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := segments.GetSegmentsByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Term index entries go with the segments
	results, err := segments.SearchText(ctx, []string{"kubernetes"}, core.Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].Segment.DocumentID)

	deleted, err = segments.DeleteByDocument(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSegmentRepository_SearchText(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	_, err := segments.Upsert(ctx,
		testSegment("doc-a", "Led the Kubernetes migration", nil, 2021),
		testSegment("doc-b", "Kubernetes cluster upgrades", nil, 2016),
		testSegment("doc-c", "Quarterly budget planning", nil, 2021),
	)
	require.NoError(t, err)

	t.Run("more keyword hits rank first", func(t *testing.T) {
		results, err := segments.SearchText(ctx, []string{"kubernetes", "migration"}, core.Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "doc-a", results[0].Segment.DocumentID)
		assert.Zero(t, results[0].Similarity)
	})

	t.Run("case and punctuation are normalized", func(t *testing.T) {
		results, err := segments.SearchText(ctx, []string{"BUDGET,"}, core.Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "doc-c", results[0].Segment.DocumentID)
	})

	t.Run("skills are indexed", func(t *testing.T) {
		results, err := segments.SearchText(ctx, []string{"go"}, core.Filters{}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("date range does not exclude", func(t *testing.T) {
		filters := core.Filters{Range: core.DateRange{End: date2018()}}
		results, err := segments.SearchText(ctx, []string{"kubernetes"}, filters, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		docs := []string{results[0].Segment.DocumentID, results[1].Segment.DocumentID}
		assert.ElementsMatch(t, []string{"doc-a", "doc-b"}, docs)
	})

	t.Run("stop words only", func(t *testing.T) {
		results, err := segments.SearchText(ctx, []string{"the", "of"}, core.Filters{}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSegmentRepository_UpdateVectorsAndForEach(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	stored, err := segments.Upsert(ctx,
		testSegment("doc-a", "one", nil, 2021),
		testSegment("doc-a", "two", nil, 2021),
		testSegment("doc-a", "three", nil, 2021),
	)
	require.NoError(t, err)

	vectors := map[core.ID][]float32{}
	for _, seg := range stored {
		vectors[seg.ID] = []float32{0.5, 0.5}
	}
	require.NoError(t, segments.UpdateVectors(ctx, vectors))

	var batches, total int
	err = segments.ForEachSegment(ctx, 2, func(batch []*core.EvidenceSegment) error {
		batches++
		for _, seg := range batch {
			total++
			assert.Equal(t, []float32{0.5, 0.5}, seg.Vector)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, 3, total)

	err = segments.UpdateVectors(ctx, map[core.ID][]float32{core.ID(999): {1}})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSegmentRepository_Vocabulary(t *testing.T) {
	segments, _ := newTestRepositories(t)
	ctx := context.Background()

	a := testSegment("doc-a", "one", nil, 2021)
	a.Skills = []string{"Go", "Kubernetes"}
	a.Topics = []string{"payments"}
	b := testSegment("doc-b", "two", nil, 2021)
	b.Skills = []string{"go", "Terraform"}
	_, err := segments.Upsert(ctx, a, b)
	require.NoError(t, err)

	skills, topics, err := segments.Vocabulary(ctx)
	require.NoError(t, err)
	assert.Len(t, skills, 3)
	assert.Contains(t, skills, "Kubernetes")
	assert.Equal(t, []string{"payments"}, topics)
}
