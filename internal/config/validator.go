package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "coordinator.port")
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

// Validate checks the Config for invalid values and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCore()...)
	errors = append(errors, c.validateCoordinator()...)
	errors = append(errors, c.validateClient()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateCore() []ValidationError {
	var errors []ValidationError

	if c.StateDir == "" {
		errors = append(errors, ValidationError{
			Field:   "state_dir",
			Value:   c.StateDir,
			Message: "cannot be empty",
		})
	}

	if c.LockTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lock_timeout",
			Value:   c.LockTimeout,
			Message: "must be positive",
		})
	}

	if c.HeartbeatThreshold <= 0 {
		errors = append(errors, ValidationError{
			Field:   "heartbeat_threshold",
			Value:   c.HeartbeatThreshold,
			Message: "must be positive",
		})
	}

	if c.CleanupInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cleanup_interval",
			Value:   c.CleanupInterval,
			Message: "must be positive",
		})
	}

	// A cleanup sweep that runs less often than the heartbeat threshold
	// leaves stale sessions unreclaimed for longer than the threshold
	// implies.
	if c.CleanupInterval > 0 && c.HeartbeatThreshold > 0 && c.CleanupInterval > c.HeartbeatThreshold {
		errors = append(errors, ValidationError{
			Field:   "cleanup_interval",
			Value:   c.CleanupInterval,
			Message: fmt.Sprintf("should not exceed heartbeat_threshold (%v)", c.HeartbeatThreshold),
		})
	}

	if c.FlushInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "flush_interval",
			Value:   c.FlushInterval,
			Message: "must be positive",
		})
	}

	if c.MaxConcurrentPerSession < 1 {
		errors = append(errors, ValidationError{
			Field:   "max_concurrent_per_session",
			Value:   c.MaxConcurrentPerSession,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateCoordinator() []ValidationError {
	var errors []ValidationError

	if c.Coordinator.Port < 0 || c.Coordinator.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "coordinator.port",
			Value:   c.Coordinator.Port,
			Message: "must be between 0 and 65535 (0 picks a free port)",
		})
	}

	if c.Coordinator.RequestTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "coordinator.request_timeout",
			Value:   c.Coordinator.RequestTimeout,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateClient() []ValidationError {
	var errors []ValidationError

	if c.Client.RetryBaseDelay <= 0 {
		errors = append(errors, ValidationError{
			Field:   "client.retry_base_delay",
			Value:   c.Client.RetryBaseDelay,
			Message: "must be positive",
		})
	}

	if c.Client.RetryMaxDelay <= 0 {
		errors = append(errors, ValidationError{
			Field:   "client.retry_max_delay",
			Value:   c.Client.RetryMaxDelay,
			Message: "must be positive",
		})
	}

	if c.Client.RetryBaseDelay > 0 && c.Client.RetryMaxDelay > 0 && c.Client.RetryBaseDelay > c.Client.RetryMaxDelay {
		errors = append(errors, ValidationError{
			Field:   "client.retry_base_delay",
			Value:   c.Client.RetryBaseDelay,
			Message: fmt.Sprintf("must not exceed retry_max_delay (%v)", c.Client.RetryMaxDelay),
		})
	}

	if c.Client.MaxRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "client.max_retries",
			Value:   c.Client.MaxRetries,
			Message: "must be at least 1",
		})
	}

	const maxSaneRetries = 20
	if c.Client.MaxRetries > maxSaneRetries {
		errors = append(errors, ValidationError{
			Field:   "client.max_retries",
			Value:   c.Client.MaxRetries,
			Message: fmt.Sprintf("exceeds sane maximum of %d", maxSaneRetries),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
