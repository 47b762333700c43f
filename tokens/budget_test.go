package tokens

import (
	"strings"
	"testing"

	"github.com/poiesic/vitae/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRecorder struct {
	calls [][2]int
}

func (r *recordingRecorder) ObserveTruncation(original, capped int) {
	r.calls = append(r.calls, [2]int{original, capped})
}

func newTestBudget(t *testing.T, opts ...BudgetOption) *Budget {
	t.Helper()
	b, err := NewBudget(EstimateCounter{}, config.DefaultConfig().Budget, opts...)
	require.NoError(t, err)
	return b
}

func TestNewBudget(t *testing.T) {
	_, err := NewBudget(nil, config.DefaultConfig().Budget)
	assert.ErrorIs(t, err, ErrCounterRequired)

	_, err = NewBudget(EstimateCounter{}, config.Budget{TargetMin: 150, TargetMax: 140, HardCap: 180})
	assert.ErrorIs(t, err, ErrInvalidBudget)

	_, err = NewBudget(EstimateCounter{}, config.Budget{TargetMin: 70, TargetMax: 200, HardCap: 180})
	assert.ErrorIs(t, err, ErrInvalidBudget)
}

func TestBudget_IsWithinBudget(t *testing.T) {
	b := newTestBudget(t)

	tests := []struct {
		runes int
		want  bool
	}{
		{0, false},
		{276, false}, // 69 tokens
		{277, true},  // 70 tokens
		{560, true},  // 140 tokens
		{561, false}, // 141 tokens
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.IsWithinBudget(strings.Repeat("a", tt.runes)), "%d runes", tt.runes)
	}
}

func TestBudget_EnforceHardCap(t *testing.T) {
	recorder := &recordingRecorder{}
	b := newTestBudget(t, WithTruncationRecorder(recorder))

	t.Run("within cap is unchanged", func(t *testing.T) {
		text := strings.Repeat("word ", 100) // 125 tokens
		c := b.EnforceHardCap(text)
		assert.Equal(t, text, c.Text)
		assert.False(t, c.Truncated)
		assert.Equal(t, 125, c.Tokens)
		assert.Equal(t, c.Tokens, c.OriginalTokens)
	})

	t.Run("over cap truncates to exactly the cap", func(t *testing.T) {
		text := strings.Repeat("abcd ", 200) // 250 tokens
		c := b.EnforceHardCap(text)
		assert.True(t, c.Truncated)
		assert.Equal(t, 250, c.OriginalTokens)
		assert.Equal(t, 180, c.Tokens)
		assert.True(t, strings.HasPrefix(text, c.Text))
		require.Len(t, recorder.calls, 1)
		assert.Equal(t, [2]int{250, 180}, recorder.calls[0])
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, text := range []string{"short", strings.Repeat("x", 721), strings.Repeat("é ", 1000)} {
			once := b.EnforceHardCap(text)
			twice := b.EnforceHardCap(once.Text)
			assert.Equal(t, once.Text, twice.Text)
			assert.False(t, twice.Truncated)
		}
	})
}
