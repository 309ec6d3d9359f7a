package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "TABLE_PREFIX", "DATABASE_URL", "GENERATION_TIMEOUT", "DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.TablePrefix != "dev_" {
		t.Errorf("TablePrefix = %q, want dev_", cfg.TablePrefix)
	}
	if cfg.UsesDatabase() {
		t.Error("UsesDatabase() = true with empty DATABASE_URL")
	}
	if cfg.GenerationTimeout != 3*time.Minute {
		t.Errorf("GenerationTimeout = %v, want 3m", cfg.GenerationTimeout)
	}
	if !cfg.Debug {
		t.Error("Debug should default to true outside prod")
	}
}

func TestGetTablePrefix(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		override string
		expected string
	}{
		{name: "prod", env: "prod", expected: "prod_"},
		{name: "test", env: "test", expected: "test_"},
		{name: "unknown falls back to dev", env: "staging", expected: "dev_"},
		{name: "override wins", env: "prod", override: "custom_", expected: "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			if got := getTablePrefix(tt.env); got != tt.expected {
				t.Errorf("getTablePrefix(%q) = %q, want %q", tt.env, got, tt.expected)
			}
		})
	}
}

func TestGetDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	if got := getDuration("FETCH_TIMEOUT", time.Second); got != time.Second {
		t.Errorf("getDuration = %v, want 1s", got)
	}
}
