// Package config holds the flat configuration consumed by the task
// core. Values arrive from an external loader (a TOML file here) as a
// plain record; the core only validates ranges and converts units.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig indicates a configuration value out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Bounds enforced by Validate.
const (
	MinWorkers = 1
	MaxWorkers = 100

	MinTimeoutSeconds = 1.0
	MaxTimeoutSeconds = 3600.0
)

// Config is the flat configuration record for one agent.
type Config struct {
	// MaxWorkers is the pool concurrency. Range: 1-100.
	MaxWorkers int `toml:"max_workers"`

	// MinPriority and MaxPriority bound accepted task priorities.
	MinPriority int `toml:"min_priority"`
	MaxPriority int `toml:"max_priority"`

	// TimeoutSeconds bounds a worker's blocking dequeue.
	// Range: 1.0-3600.0.
	TimeoutSeconds float64 `toml:"timeout"`

	// ShutdownGraceSeconds is the default grace period for Stop.
	// Range: 1.0-3600.0.
	ShutdownGraceSeconds float64 `toml:"shutdown_grace"`

	// MaxRetries and BackoffFactor are validated for range but not
	// consumed by the core: no automatic retry algorithm is defined,
	// and inventing one here would be unverified behavior. They are
	// carried for hosts that layer retry on top.
	MaxRetries    int     `toml:"max_retries"`
	BackoffFactor float64 `toml:"backoff_factor"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:           4,
		MinPriority:          0,
		MaxPriority:          100,
		TimeoutSeconds:       1.0,
		ShutdownGraceSeconds: 30.0,
		MaxRetries:           0,
		BackoffFactor:        1.0,
	}
}

// Load reads a TOML file and validates it. Fields absent from the
// file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all ranges.
func (c *Config) Validate() error {
	if c.MaxWorkers < MinWorkers || c.MaxWorkers > MaxWorkers {
		return fmt.Errorf("%w: max_workers must be %d-%d, got %d",
			ErrInvalidConfig, MinWorkers, MaxWorkers, c.MaxWorkers)
	}
	if c.MinPriority > c.MaxPriority {
		return fmt.Errorf("%w: min_priority %d exceeds max_priority %d",
			ErrInvalidConfig, c.MinPriority, c.MaxPriority)
	}
	if c.TimeoutSeconds < MinTimeoutSeconds || c.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: timeout must be %.1f-%.1f seconds, got %g",
			ErrInvalidConfig, MinTimeoutSeconds, MaxTimeoutSeconds, c.TimeoutSeconds)
	}
	if c.ShutdownGraceSeconds < MinTimeoutSeconds || c.ShutdownGraceSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: shutdown_grace must be %.1f-%.1f seconds, got %g",
			ErrInvalidConfig, MinTimeoutSeconds, MaxTimeoutSeconds, c.ShutdownGraceSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be >= 0, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("%w: backoff_factor must be >= 1.0, got %g", ErrInvalidConfig, c.BackoffFactor)
	}
	return nil
}

// DequeueTimeout returns the dequeue timeout as a duration.
func (c *Config) DequeueTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// ShutdownGrace returns the default stop grace period as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds * float64(time.Second))
}
