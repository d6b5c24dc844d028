// Package kconfig defines the Authority's engine configuration and its
// viper-backed loading: a mapstructure-tagged struct, a Default()
// constructor, viper defaults registration, and a Load that unmarshals
// and validates.
package kconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EngineConfig is the Authority's construction config.
type EngineConfig struct {
	// DefaultWorkers is the number of logical workers the WorkerPool
	// starts with.
	DefaultWorkers int `mapstructure:"default_workers"`
	// MaxWorkers is the ceiling the WorkerPool never grows past.
	MaxWorkers int `mapstructure:"max_workers"`
	// IdleTimeoutMs is how long, in milliseconds, an idle logical
	// worker may sit before it becomes a candidate for scale-down.
	// Kestrel's Pool does not currently act on this value; it is
	// carried through config for a future autoscaling policy.
	IdleTimeoutMs int `mapstructure:"idle_timeout_ms"`
}

// IdleTimeout returns IdleTimeoutMs as a time.Duration.
func (c EngineConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

// Default returns an EngineConfig with sensible default values.
func Default() EngineConfig {
	return EngineConfig{
		DefaultWorkers: 1,
		MaxWorkers:     4,
		IdleTimeoutMs:  30_000,
	}
}

// SetDefaults registers EngineConfig's default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("default_workers", defaults.DefaultWorkers)
	v.SetDefault("max_workers", defaults.MaxWorkers)
	v.SetDefault("idle_timeout_ms", defaults.IdleTimeoutMs)
}

// Load reads an EngineConfig out of v, applying defaults for anything
// unset, and validates it.
func Load(v *viper.Viper) (EngineConfig, error) {
	SetDefaults(v)

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("unmarshal engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate checks EngineConfig invariants.
func (c EngineConfig) Validate() error {
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be >= 0, got %d", c.MaxWorkers)
	}
	if c.DefaultWorkers < 0 {
		return fmt.Errorf("default_workers must be >= 0, got %d", c.DefaultWorkers)
	}
	if c.DefaultWorkers > c.MaxWorkers {
		return fmt.Errorf("default_workers (%d) must not exceed max_workers (%d)", c.DefaultWorkers, c.MaxWorkers)
	}
	if c.IdleTimeoutMs < 0 {
		return fmt.Errorf("idle_timeout_ms must be >= 0, got %d", c.IdleTimeoutMs)
	}
	return nil
}
