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


package ai

import (
	"fmt"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ExpanderHost is the base URL for the query expansion service API.
	ExpanderHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// ExpanderModel is the chat model used to expand queries.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ExpanderModel string

	// APIKey is sent as the bearer token. Local servers accept any value.
	APIKey string

	// QueryPrefix and DocumentPrefix are prepended to text before embedding,
	// for models trained with instruction prefixes such as "search_query: ".
	QueryPrefix    string
	DocumentPrefix string

	// RequestsPerSecond limits embedding calls. Zero means unlimited.
	RequestsPerSecond float64

	// MaxExpansions caps the phrasings returned by the query expander.
	// Default: 3
	MaxExpansions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithExpanderHost sets the query expansion service host URL.
func WithExpanderHost(host string) ConfigOption {
	return func(c *Config) {
		c.ExpanderHost = host
	}
}

// WithHost sets both embedding and expander hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ExpanderHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithExpanderModel sets the query expansion model identifier.
func WithExpanderModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExpanderModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithPrefixes sets the query and document instruction prefixes.
func WithPrefixes(query, document string) ConfigOption {
	return func(c *Config) {
		c.QueryPrefix = query
		c.DocumentPrefix = document
	}
}

// WithRequestsPerSecond limits the embedding request rate.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithMaxExpansions caps the number of query expansions.
func WithMaxExpansions(n int) ConfigOption {
	return func(c *Config) {
		c.MaxExpansions = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		ExpanderHost:   defaultHost,
		EmbeddingModel: "all-minilm",
		ExpanderModel:  "qwen2.5:3b",
		APIKey:         "none",
		MaxExpansions:  3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	    WithPrefixes("search_query: ", "search_document: "),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ExpanderHost = withV1(c.ExpanderHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig)
	}
	if c.ExpanderHost == "" {
		return fmt.Errorf("%w: ExpanderHost is required", ErrInvalidConfig)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
	}
	if c.ExpanderModel == "" {
		return fmt.Errorf("%w: ExpanderModel is required", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: RequestsPerSecond must not be negative", ErrInvalidConfig)
	}
	if c.MaxExpansions < 1 || c.MaxExpansions > 10 {
		return fmt.Errorf("%w: MaxExpansions must be between 1 and 10", ErrInvalidConfig)
	}
	return nil
}

// Prefix returns the instruction prefix for purpose.
func (c *Config) Prefix(purpose Purpose) string {
	if purpose == PurposeQuery {
		return c.QueryPrefix
	}
	return c.DocumentPrefix
}
