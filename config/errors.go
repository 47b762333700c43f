package config

import "errors"

var (
	// ErrInvalidConfig indicates tuning values that contradict each other.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedVersion indicates a config file written for another schema version.
	ErrUnsupportedVersion = errors.New("unsupported config version")
)
