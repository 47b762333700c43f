// Package mock provides test double implementations of AI service interfaces.
//
// The mocks allow tests to run without external AI services. Behavior is
// injected through function fields, and call counts are safe to read from
// concurrent tests.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string, p ai.Purpose) ([]float32, error) {
//	    return []float32{1, 0, 0}, nil
//	}
//	provider := mock.NewMockProviderWithServices(embedder, nil)
//
// By default MockEmbedder returns deterministic unit vectors derived from the
// text hash and MockExpander returns no expansions.
package mock
