package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/vitae/ai"
	"github.com/poiesic/vitae/core"
	"github.com/poiesic/vitae/storage"
	"github.com/poiesic/vitae/storage/badger"
	"github.com/stretchr/testify/require"
)

// mockEmbedder returns unnormalized vectors unless embedTextsFunc is set.
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	purposes       []ai.Purpose
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string, purpose ai.Purpose) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text}, purpose)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string, purpose ai.Purpose) ([][]float32, error) {
	m.purposes = append(m.purposes, purpose)
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude = 3.0
	}
	return result, nil
}

func setupTestDB(t *testing.T) (storage.SegmentRepository, func()) {
	segments, states, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	return segments, func() {
		states.Close()
		segments.Close()
		backend.Close()
	}
}

// seedSegments stores n distinct segments with stale two-dimensional vectors.
func seedSegments(t *testing.T, repo storage.SegmentRepository, n int) []*core.EvidenceSegment {
	t.Helper()
	segs := make([]*core.EvidenceSegment, n)
	for i := range segs {
		segs[i] = &core.EvidenceSegment{
			DocumentID: fmt.Sprintf("doc-%d", i%3),
			Kind:       core.KindOverview,
			Content:    fmt.Sprintf("Acme • Engineer\nSegment number %d describing some work.", i),
			TokenCount: 80,
			Vector:     []float32{0.5, 0.5},
		}
	}
	stored, err := repo.Upsert(context.Background(), segs...)
	require.NoError(t, err)
	return stored
}
