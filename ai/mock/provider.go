package mock

import "github.com/poiesic/vitae/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder
	expander *MockExpander
}

// NewMockProvider creates a mock provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		expander: NewMockExpander(),
	}
}

// NewMockProviderWithServices creates a mock provider using the given services.
func NewMockProviderWithServices(embedder *MockEmbedder, expander *MockExpander) *MockProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if expander == nil {
		expander = NewMockExpander()
	}
	return &MockProvider{embedder: embedder, expander: expander}
}

// Embedder implements ai.AIProvider.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// QueryExpander implements ai.AIProvider.
func (p *MockProvider) QueryExpander() ai.QueryExpander {
	return p.expander
}

// Close implements ai.AIProvider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the concrete embedder for assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockExpander returns the concrete expander for assertions.
func (p *MockProvider) GetMockExpander() *MockExpander {
	return p.expander
}
