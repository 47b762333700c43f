package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/vitae/ai"
)

// MockExpander is a test double for ai.QueryExpander.
type MockExpander struct {
	// ExpandFunc is called by Expand if set.
	// If nil, Expand returns no expansions.
	ExpandFunc func(ctx context.Context, query string) ([]string, error)

	callCount atomic.Int64
}

var _ ai.QueryExpander = (*MockExpander)(nil)

// NewMockExpander creates a mock expander that expands nothing.
func NewMockExpander() *MockExpander {
	return &MockExpander{}
}

// Expand implements ai.QueryExpander.
func (m *MockExpander) Expand(ctx context.Context, query string) ([]string, error) {
	m.callCount.Add(1)
	if m.ExpandFunc != nil {
		return m.ExpandFunc(ctx, query)
	}
	return nil, nil
}

// CallCount returns the number of Expand calls.
func (m *MockExpander) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom function.
func (m *MockExpander) Reset() {
	m.callCount.Store(0)
	m.ExpandFunc = nil
}
