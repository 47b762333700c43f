package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Load reads a YAML config file over the defaults and validates the result.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// envOverride binds one environment variable to a config field.
type envOverride struct {
	name  string
	apply func(c *Config, raw string) error
}

func intField(get func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*get(c) = v
		return nil
	}
}

func floatField(get func(c *Config) *float64) func(*Config, string) error {
	return func(c *Config, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*get(c) = v
		return nil
	}
}

var envOverrides = []envOverride{
	{"VITAE_TARGET_MIN", intField(func(c *Config) *int { return &c.Budget.TargetMin })},
	{"VITAE_TARGET_MAX", intField(func(c *Config) *int { return &c.Budget.TargetMax })},
	{"VITAE_HARD_CAP", intField(func(c *Config) *int { return &c.Budget.HardCap })},
	{"VITAE_WEIGHT_SIMILARITY", floatField(func(c *Config) *float64 { return &c.Weights.Similarity })},
	{"VITAE_WEIGHT_RECENCY", floatField(func(c *Config) *float64 { return &c.Weights.Recency })},
	{"VITAE_WEIGHT_METADATA", floatField(func(c *Config) *float64 { return &c.Weights.Metadata })},
	{"VITAE_BASE_THRESHOLD", floatField(func(c *Config) *float64 { return &c.Retrieval.BaseThreshold })},
	{"VITAE_DEFAULT_LIMIT", intField(func(c *Config) *int { return &c.Retrieval.DefaultLimit })},
	{"VITAE_EMBED_TIMEOUT_MS", intField(func(c *Config) *int { return &c.Retrieval.EmbedTimeoutMS })},
	{"VITAE_STORE_TIMEOUT_MS", intField(func(c *Config) *int { return &c.Retrieval.StoreTimeoutMS })},
}

// ApplyEnv overrides fields from VITAE_* variables found through lookup
// (usually os.LookupEnv) and validates the result.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		raw, ok := lookup(o.name)
		if !ok || raw == "" {
			continue
		}
		if err := o.apply(c, raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, o.name, err)
		}
	}
	return c.Validate()
}
