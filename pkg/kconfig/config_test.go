package kconfig

import (
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to be valid: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxWorkers != Default().MaxWorkers {
		t.Fatalf("expected default max_workers, got %d", cfg.MaxWorkers)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	v := viper.New()
	v.Set("max_workers", 16)
	v.Set("default_workers", 8)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxWorkers != 16 || cfg.DefaultWorkers != 8 {
		t.Fatalf("expected overrides to apply, got %+v", cfg)
	}
}

func TestValidateRejectsDefaultExceedingMax(t *testing.T) {
	cfg := EngineConfig{DefaultWorkers: 10, MaxWorkers: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRejectsNegativeValues(t *testing.T) {
	cfg := EngineConfig{DefaultWorkers: -1, MaxWorkers: 4}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for negative default_workers")
	}
}
