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


package config

import (
	"fmt"
	"log/slog"
	"time"
)

// CurrentVersion is the configuration schema version this build understands.
const CurrentVersion = 1

// Config is the single versioned set of tuning values for extraction,
// scoring and retrieval. Every constant that shapes ranking lives here.
type Config struct {
	Version    int        `yaml:"version"`
	Budget     Budget     `yaml:"budget"`
	Weights    Weights    `yaml:"weights"`
	Retrieval  Retrieval  `yaml:"retrieval"`
	Resilience Resilience `yaml:"resilience"`
}

// Budget bounds the token count of every persisted segment.
type Budget struct {
	// TargetMin is the smallest segment worth persisting.
	TargetMin int `yaml:"target_min"`
	// TargetMax is the preferred upper size of a segment.
	TargetMax int `yaml:"target_max"`
	// HardCap is the absolute upper size; longer text is truncated.
	HardCap int `yaml:"hard_cap"`
}

// Weights combine the ranking components into a final score.
type Weights struct {
	Similarity float64 `yaml:"similarity"`
	Recency    float64 `yaml:"recency"`
	Metadata   float64 `yaml:"metadata"`

	// BoostPerMatch is added to the metadata component per overlapping skill or
	// tag and once when the tenure overlaps the filter date range.
	BoostPerMatch float64 `yaml:"boost_per_match"`
	// MaxBoost caps the metadata component.
	MaxBoost float64 `yaml:"max_boost"`
	// RecencyWindowDays is the age at which recency reaches zero.
	RecencyWindowDays int `yaml:"recency_window_days"`
	// OpenEndedRecency is the recency assigned to ongoing entries.
	OpenEndedRecency float64 `yaml:"open_ended_recency"`
}

// RecencyWindow returns the recency decay window as a duration.
func (w Weights) RecencyWindow() time.Duration {
	return time.Duration(w.RecencyWindowDays) * 24 * time.Hour
}

// Sum returns the total of the three component weights.
func (w Weights) Sum() float64 {
	return w.Similarity + w.Recency + w.Metadata
}

// Retrieval tunes the query pipeline.
type Retrieval struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// OverFetch multiplies the limit for the primary vector search.
	OverFetch int `yaml:"over_fetch"`

	// BaseThreshold applies to a query with three meaningful terms.
	BaseThreshold float64 `yaml:"base_threshold"`
	// ThresholdStep is added per meaningful term beyond three and when filters are present.
	ThresholdStep float64 `yaml:"threshold_step"`
	MinThreshold  float64 `yaml:"min_threshold"`
	MaxThreshold  float64 `yaml:"max_threshold"`

	// LexicalBaseline is the similarity assigned to keyword fallback matches.
	LexicalBaseline float64 `yaml:"lexical_baseline"`
	// MinContentRunes drops candidates too short to be useful evidence.
	MinContentRunes int `yaml:"min_content_runes"`
	// FuzzyMatch is the Jaro-Winkler similarity needed to treat a query term as a known skill or tag.
	FuzzyMatch float64 `yaml:"fuzzy_match"`
	// MaxKeywords caps the keywords sent to the fallback search.
	MaxKeywords int `yaml:"max_keywords"`

	HighConfidence   float64 `yaml:"high_confidence"`
	MediumConfidence float64 `yaml:"medium_confidence"`

	EmbedTimeoutMS int `yaml:"embed_timeout_ms"`
	StoreTimeoutMS int `yaml:"store_timeout_ms"`
}

// EmbedTimeout bounds a query embedding call.
func (r Retrieval) EmbedTimeout() time.Duration {
	return time.Duration(r.EmbedTimeoutMS) * time.Millisecond
}

// StoreTimeout bounds each store call attempt.
func (r Retrieval) StoreTimeout() time.Duration {
	return time.Duration(r.StoreTimeoutMS) * time.Millisecond
}

// Resilience tunes retries and the store circuit breaker.
type Resilience struct {
	MaxAttempts      int    `yaml:"max_attempts"`
	RetryBaseDelayMS int    `yaml:"retry_base_delay_ms"`
	BreakerFailures  uint32 `yaml:"breaker_failures"`
	BreakerCooldownS int    `yaml:"breaker_cooldown_s"`
}

// RetryBaseDelay is the first backoff delay.
func (r Resilience) RetryBaseDelay() time.Duration {
	return time.Duration(r.RetryBaseDelayMS) * time.Millisecond
}

// BreakerCooldown is how long an open breaker rejects calls.
func (r Resilience) BreakerCooldown() time.Duration {
	return time.Duration(r.BreakerCooldownS) * time.Second
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBudget sets the segment token bounds.
func WithBudget(targetMin, targetMax, hardCap int) ConfigOption {
	return func(c *Config) {
		c.Budget = Budget{TargetMin: targetMin, TargetMax: targetMax, HardCap: hardCap}
	}
}

// WithWeights sets the three component weights.
func WithWeights(similarity, recency, metadata float64) ConfigOption {
	return func(c *Config) {
		c.Weights.Similarity = similarity
		c.Weights.Recency = recency
		c.Weights.Metadata = metadata
	}
}

// WithThresholds sets the adaptive threshold base and bounds.
func WithThresholds(base, floor, ceiling float64) ConfigOption {
	return func(c *Config) {
		c.Retrieval.BaseThreshold = base
		c.Retrieval.MinThreshold = floor
		c.Retrieval.MaxThreshold = ceiling
	}
}

// WithLimits sets the default and maximum result counts.
func WithLimits(defaultLimit, maxLimit int) ConfigOption {
	return func(c *Config) {
		c.Retrieval.DefaultLimit = defaultLimit
		c.Retrieval.MaxLimit = maxLimit
	}
}

// WithTimeouts sets the embedding and store call timeouts.
func WithTimeouts(embed, store time.Duration) ConfigOption {
	return func(c *Config) {
		c.Retrieval.EmbedTimeoutMS = int(embed / time.Millisecond)
		c.Retrieval.StoreTimeoutMS = int(store / time.Millisecond)
	}
}

// WithRetry sets store retry attempts and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.Resilience.MaxAttempts = maxAttempts
		c.Resilience.RetryBaseDelayMS = int(baseDelay / time.Millisecond)
	}
}

// WithBreaker sets the consecutive failures that open the breaker and its cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) ConfigOption {
	return func(c *Config) {
		c.Resilience.BreakerFailures = failures
		c.Resilience.BreakerCooldownS = int(cooldown / time.Second)
	}
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Budget: Budget{
			TargetMin: 70,
			TargetMax: 140,
			HardCap:   180,
		},
		Weights: Weights{
			Similarity:        0.80,
			Recency:           0.10,
			Metadata:          0.10,
			BoostPerMatch:     0.02,
			MaxBoost:          0.10,
			RecencyWindowDays: 730,
			OpenEndedRecency:  0.5,
		},
		Retrieval: Retrieval{
			DefaultLimit:     5,
			MaxLimit:         50,
			OverFetch:        3,
			BaseThreshold:    0.30,
			ThresholdStep:    0.05,
			MinThreshold:     0.20,
			MaxThreshold:     0.50,
			LexicalBaseline:  0.35,
			MinContentRunes:  40,
			FuzzyMatch:       0.92,
			MaxKeywords:      8,
			HighConfidence:   0.75,
			MediumConfidence: 0.50,
			EmbedTimeoutMS:   10000,
			StoreTimeoutMS:   5000,
		},
		Resilience: Resilience{
			MaxAttempts:      3,
			RetryBaseDelayMS: 100,
			BreakerFailures:  5,
			BreakerCooldownS: 30,
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBudget(60, 120, 160),
//	    WithWeights(0.85, 0.10, 0.05),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrUnsupportedVersion, c.Version, CurrentVersion)
	}

	b := c.Budget
	if b.TargetMin <= 0 || b.TargetMin > b.TargetMax || b.TargetMax > b.HardCap {
		return fmt.Errorf("%w: budget must satisfy 0 < target_min <= target_max <= hard_cap, got %d/%d/%d",
			ErrInvalidConfig, b.TargetMin, b.TargetMax, b.HardCap)
	}

	w := c.Weights
	if w.Similarity < 0 || w.Recency < 0 || w.Metadata < 0 || w.Sum() <= 0 {
		return fmt.Errorf("%w: weights must be non-negative with a positive sum", ErrInvalidConfig)
	}
	if w.Similarity <= w.Recency || w.Similarity <= w.Metadata {
		return fmt.Errorf("%w: similarity weight must dominate recency and metadata", ErrInvalidConfig)
	}
	if w.BoostPerMatch < 0 || w.MaxBoost < 0 || w.MaxBoost > 1 {
		return fmt.Errorf("%w: metadata boost must be within [0, 1]", ErrInvalidConfig)
	}
	if w.RecencyWindowDays <= 0 {
		return fmt.Errorf("%w: recency_window_days must be positive", ErrInvalidConfig)
	}
	if w.OpenEndedRecency < 0 || w.OpenEndedRecency > 1 {
		return fmt.Errorf("%w: open_ended_recency must be within [0, 1]", ErrInvalidConfig)
	}

	r := c.Retrieval
	if r.DefaultLimit <= 0 || r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("%w: limits must satisfy 0 < default_limit <= max_limit", ErrInvalidConfig)
	}
	if r.OverFetch < 1 {
		return fmt.Errorf("%w: over_fetch must be at least 1", ErrInvalidConfig)
	}
	if r.MinThreshold < 0 || r.MinThreshold > r.MaxThreshold || r.MaxThreshold > 1 {
		return fmt.Errorf("%w: thresholds must satisfy 0 <= min_threshold <= max_threshold <= 1", ErrInvalidConfig)
	}
	if r.BaseThreshold < r.MinThreshold || r.BaseThreshold > r.MaxThreshold {
		return fmt.Errorf("%w: base_threshold must lie within [min_threshold, max_threshold]", ErrInvalidConfig)
	}
	if r.LexicalBaseline < 0 || r.LexicalBaseline > 1 {
		return fmt.Errorf("%w: lexical_baseline must be within [0, 1]", ErrInvalidConfig)
	}
	if r.FuzzyMatch <= 0 || r.FuzzyMatch > 1 {
		return fmt.Errorf("%w: fuzzy_match must be within (0, 1]", ErrInvalidConfig)
	}
	if r.MediumConfidence > r.HighConfidence {
		return fmt.Errorf("%w: medium_confidence must not exceed high_confidence", ErrInvalidConfig)
	}
	if r.EmbedTimeoutMS <= 0 || r.StoreTimeoutMS <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}

	res := c.Resilience
	if res.MaxAttempts < 1 || res.RetryBaseDelayMS < 0 || res.BreakerFailures < 1 || res.BreakerCooldownS <= 0 {
		return fmt.Errorf("%w: resilience settings must be positive", ErrInvalidConfig)
	}

	return nil
}

// LogValue implements slog.LogValuer so the active tuning can be audited in logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("version", c.Version),
		slog.String("budget", fmt.Sprintf("%d/%d/%d", c.Budget.TargetMin, c.Budget.TargetMax, c.Budget.HardCap)),
		slog.String("weights", fmt.Sprintf("sim=%.2f rec=%.2f meta=%.2f", c.Weights.Similarity, c.Weights.Recency, c.Weights.Metadata)),
		slog.String("thresholds", fmt.Sprintf("base=%.2f floor=%.2f ceil=%.2f", c.Retrieval.BaseThreshold, c.Retrieval.MinThreshold, c.Retrieval.MaxThreshold)),
	)
}
