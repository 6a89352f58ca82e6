package config

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/kepler/internal/message"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() config should be valid, got: %v", errs)
	}
}

func hasField(errs []ValidationError, field string) bool {
	for _, err := range errs {
		if err.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"pool capacity zero", func(c *Config) { c.Pool.Capacity = 0 }, "pool.capacity"},
		{"pool capacity over max", func(c *Config) { c.Pool.Capacity = message.MaxMessages + 1 }, "pool.capacity"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"uppercase log level", func(c *Config) { c.Logging.Level = "INFO" }, "logging.level"},
		{"log file null byte", func(c *Config) { c.Logging.File = "a\x00b" }, "logging.file"},
		{"empty scenario", func(c *Config) { c.Selftest.Scenarios = []string{" "} }, "selftest.scenarios[0]"},
		{"duplicate scenario", func(c *Config) { c.Selftest.Scenarios = []string{"a", "a"} }, "selftest.scenarios[1]"},
		{"zero producers", func(c *Config) { c.Loadgen.Producers = 0 }, "loadgen.producers"},
		{"too many producers", func(c *Config) { c.Loadgen.Producers = 1 << 16 }, "loadgen.producers"},
		{"zero consumers", func(c *Config) { c.Loadgen.Consumers = 0 }, "loadgen.consumers"},
		{"zero messages", func(c *Config) { c.Loadgen.MessagesPerProducer = 0 }, "loadgen.messages_per_producer"},
		{"zero destinations", func(c *Config) { c.Loadgen.Destinations = 0 }, "loadgen.destinations"},
		{"too many destinations", func(c *Config) { c.Loadgen.Destinations = message.MaxDestinations + 1 }, "loadgen.destinations"},
		{"negative timeout", func(c *Config) { c.Loadgen.Timeout = -time.Second }, "loadgen.timeout"},
		{"huge timeout", func(c *Config) { c.Loadgen.Timeout = 48 * time.Hour }, "loadgen.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if errs := cfg.Validate(); !hasField(errs, tt.wantField) {
				t.Errorf("Validate() = %v, want error for %s", errs, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_Boundaries(t *testing.T) {
	cfg := Default()
	cfg.Pool.Capacity = 1
	cfg.Loadgen.Destinations = message.MaxDestinations
	cfg.Loadgen.Timeout = 0
	cfg.Logging.Level = ""

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("boundary values should be valid, got: %v", errs)
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Pool.Capacity = -1
	cfg.Loadgen.Consumers = 0

	if errs := cfg.Validate(); len(errs) != 2 {
		t.Errorf("Validate() returned %d errors, want 2: %v", len(errs), errs)
	}
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}
	if len(levels) != len(expected) {
		t.Fatalf("ValidLogLevels() length = %d, want %d", len(levels), len(expected))
	}
	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}
