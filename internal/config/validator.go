package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/kepler/internal/logging"
	"github.com/Iron-Ham/kepler/internal/message"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "loadgen.producers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return logging.Levels()
}

// maxProducers is bounded by the 16-bit producer id in load payloads.
const maxProducers = 1<<16 - 1

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePool()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateSelftest()...)
	errors = append(errors, c.validateLoadgen()...)

	return errors
}

// validatePool validates the PoolConfig
func (c *Config) validatePool() []ValidationError {
	var errors []ValidationError

	if c.Pool.Capacity < 1 || c.Pool.Capacity > message.MaxMessages {
		errors = append(errors, ValidationError{
			Field:   "pool.capacity",
			Value:   c.Pool.Capacity,
			Message: fmt.Sprintf("must be between 1 and %d", message.MaxMessages),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if strings.ContainsRune(c.Logging.File, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.file",
			Value:   c.Logging.File,
			Message: "path contains invalid null character",
		})
	}

	return errors
}

// validateSelftest validates the SelftestConfig
func (c *Config) validateSelftest() []ValidationError {
	var errors []ValidationError

	seen := make(map[string]bool)
	for i, name := range c.Selftest.Scenarios {
		field := fmt.Sprintf("selftest.scenarios[%d]", i)
		if strings.TrimSpace(name) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   name,
				Message: "scenario name cannot be empty",
			})
			continue
		}
		if seen[name] {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   name,
				Message: "duplicate scenario name",
			})
		}
		seen[name] = true
	}

	return errors
}

// validateLoadgen validates the LoadgenConfig
func (c *Config) validateLoadgen() []ValidationError {
	var errors []ValidationError

	if c.Loadgen.Producers < 1 || c.Loadgen.Producers > maxProducers {
		errors = append(errors, ValidationError{
			Field:   "loadgen.producers",
			Value:   c.Loadgen.Producers,
			Message: fmt.Sprintf("must be between 1 and %d", maxProducers),
		})
	}

	if c.Loadgen.Consumers < 1 {
		errors = append(errors, ValidationError{
			Field:   "loadgen.consumers",
			Value:   c.Loadgen.Consumers,
			Message: "must be at least 1",
		})
	}

	if c.Loadgen.MessagesPerProducer < 1 {
		errors = append(errors, ValidationError{
			Field:   "loadgen.messages_per_producer",
			Value:   c.Loadgen.MessagesPerProducer,
			Message: "must be at least 1",
		})
	}

	if c.Loadgen.Destinations < 1 || c.Loadgen.Destinations > message.MaxDestinations {
		errors = append(errors, ValidationError{
			Field:   "loadgen.destinations",
			Value:   c.Loadgen.Destinations,
			Message: fmt.Sprintf("must be between 1 and %d", message.MaxDestinations),
		})
	}

	if c.Loadgen.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "loadgen.timeout",
			Value:   c.Loadgen.Timeout,
			Message: "must be non-negative (0 = no limit)",
		})
	}

	// Reasonable upper bound
	const maxTimeout = 24 * time.Hour
	if c.Loadgen.Timeout > maxTimeout {
		errors = append(errors, ValidationError{
			Field:   "loadgen.timeout",
			Value:   c.Loadgen.Timeout,
			Message: fmt.Sprintf("must be at most %s", maxTimeout),
		})
	}

	return errors
}
