package storage

import (
	"testing"
	"time"

	"github.com/poiesic/vitae/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}

	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalSegment(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("fully populated", func(t *testing.T) {
		seg := &core.EvidenceSegment{
			ID:           core.IDFromContent("content"),
			Fingerprint:  core.Fingerprint("content"),
			DocumentID:   "acme-engineer",
			Kind:         core.KindAchievement,
			Content:      "Acme • Engineer • 2020–2022\nReduced latency by 40%.",
			Summary:      "Reduced latency by 40%.",
			Title:        "Engineer",
			Organization: "Acme",
			Start:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			End:          time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
			Topics:       []string{"performance"},
			Skills:       []string{"Go", "PostgreSQL"},
			TokenCount:   84,
			Truncated:    true,
			Vector:       []float32{0.1, -0.25, 1e-7, 0},
			InsertedAt:   now,
		}

		decoded, err := UnmarshalSegment(MarshalSegment(seg))
		require.NoError(t, err)
		assert.Equal(t, seg, decoded)
	})

	t.Run("open ended without vector", func(t *testing.T) {
		seg := &core.EvidenceSegment{
			DocumentID: "d1",
			Kind:       core.KindOverview,
			Content:    "text",
			Start:      time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
		}

		decoded, err := UnmarshalSegment(MarshalSegment(seg))
		require.NoError(t, err)
		assert.True(t, decoded.End.IsZero())
		assert.Nil(t, decoded.Vector)
		assert.Nil(t, decoded.Skills)
		assert.Equal(t, seg.Start, decoded.Start)
	})

	t.Run("truncated data", func(t *testing.T) {
		data := MarshalSegment(&core.EvidenceSegment{Content: "some content", Skills: []string{"Go"}})
		_, err := UnmarshalSegment(data[:len(data)/2])
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestMarshalUnmarshalDocumentState(t *testing.T) {
	state := &core.DocumentState{
		DocumentID:   "acme-engineer",
		ContentHash:  core.Fingerprint("doc"),
		SegmentCount: 3,
		UpdatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalDocumentState(MarshalDocumentState(state))
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}
