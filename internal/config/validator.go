package config

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/Iron-Ham/dynoscaler/internal/errors"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "scaler.up_cycles")
	Value   any    // The invalid value
	Message string // Human-readable error description
	Err     error  // Optional sentinel the failure matches (e.g. errors.ErrInvalidCycles)
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the sentinel the failure matches, if any.
func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Unwrap exposes each failure so errors.Is finds their sentinels.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, v := range e {
		errs[i] = v
	}
	return errs
}

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
	return []string{"debug", "info", "warn", "error"}
}

// ValidQueueProviders returns the supported queue depth sources
func ValidQueueProviders() []string {
	return []string{QueueProviderCloudWatch, QueueProviderSQS}
}

// ValidFleetProviders returns the supported fleet controllers
func ValidFleetProviders() []string {
	return []string{FleetProviderHeroku, FleetProviderKubernetes}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateScaler()...)
	errors = append(errors, c.validateQueue()...)
	errors = append(errors, c.validateFleet()...)
	errors = append(errors, c.validateTelemetry()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateServer()...)

	return errors
}

// validateScaler validates the decision engine parameters.
//
// The default mode keeps the two compound checks of legacy deployments:
// cycles are rejected only when both counts are below one, and bounds only
// when max < 1, min < 1 and max < min all hold. StrictValidation checks each
// invariant on its own.
func (c *Config) validateScaler() []ValidationError {
	var errors []ValidationError
	s := c.Scaler

	if s.UpCycles < 1 && s.DownCycles < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaler.up_cycles",
			Value:   fmt.Sprintf("up=%d down=%d", s.UpCycles, s.DownCycles),
			Message: "cycles must be at least 1",
			Err:     apperrors.ErrInvalidCycles,
		})
	}

	if s.MaxInstances < 1 && s.MinInstances < 1 && s.MaxInstances < s.MinInstances {
		errors = append(errors, ValidationError{
			Field:   "scaler.max_instances",
			Value:   fmt.Sprintf("min=%d max=%d", s.MinInstances, s.MaxInstances),
			Message: "min/max instances are not set correctly",
			Err:     apperrors.ErrInvalidBounds,
		})
	}

	if s.Interval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scaler.interval",
			Value:   s.Interval,
			Message: "must be positive",
		})
	}

	if s.StrictValidation {
		errors = append(errors, s.validateStrict()...)
	}

	return errors
}

// validateStrict checks each scaler invariant independently.
func (s ScalerConfig) validateStrict() []ValidationError {
	var errors []ValidationError

	if s.MinInstances < 0 {
		errors = append(errors, ValidationError{
			Field:   "scaler.min_instances",
			Value:   s.MinInstances,
			Message: "must be non-negative",
			Err:     apperrors.ErrInvalidBounds,
		})
	}
	if s.MinInstances > s.MaxInstances {
		errors = append(errors, ValidationError{
			Field:   "scaler.min_instances",
			Value:   s.MinInstances,
			Message: fmt.Sprintf("must not exceed max_instances (%d)", s.MaxInstances),
			Err:     apperrors.ErrInvalidBounds,
		})
	}
	if s.UpCycles < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaler.up_cycles",
			Value:   s.UpCycles,
			Message: "must be at least 1",
			Err:     apperrors.ErrInvalidCycles,
		})
	}
	if s.DownCycles < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaler.down_cycles",
			Value:   s.DownCycles,
			Message: "must be at least 1",
			Err:     apperrors.ErrInvalidCycles,
		})
	}
	if s.BacklogThreshold <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scaler.backlog_threshold",
			Value:   s.BacklogThreshold,
			Message: "must be positive",
		})
	}
	if s.HardCeiling < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaler.hard_ceiling",
			Value:   s.HardCeiling,
			Message: "must be at least 1",
			Err:     apperrors.ErrInvalidBounds,
		})
	}

	return errors
}

// validateQueue validates the QueueConfig
func (c *Config) validateQueue() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidQueueProviders(), c.Queue.Provider) {
		errors = append(errors, ValidationError{
			Field:   "queue.provider",
			Value:   c.Queue.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidQueueProviders(), ", ")),
		})
	}

	if c.Queue.Provider == QueueProviderCloudWatch && c.Queue.Window < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.window",
			Value:   c.Queue.Window,
			Message: "must be non-negative",
		})
	}

	if c.Queue.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.timeout",
			Value:   c.Queue.Timeout,
			Message: "must be non-negative (0 disables timeout)",
		})
	}

	// Only one of the static credential halves set is almost always a typo
	if (c.Queue.AccessKeyID == "") != (c.Queue.SecretAccessKey == "") {
		errors = append(errors, ValidationError{
			Field:   "queue.access_key_id",
			Value:   "<redacted>",
			Message: "access_key_id and secret_access_key must be set together",
		})
	}

	return errors
}

// validateFleet validates the FleetConfig
func (c *Config) validateFleet() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidFleetProviders(), c.Fleet.Provider) {
		errors = append(errors, ValidationError{
			Field:   "fleet.provider",
			Value:   c.Fleet.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFleetProviders(), ", ")),
		})
	}

	if c.Fleet.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "fleet.timeout",
			Value:   c.Fleet.Timeout,
			Message: "must be non-negative (0 disables timeout)",
		})
	}

	if c.Fleet.Provider == FleetProviderHeroku && c.Fleet.Heroku.APIURL != "" &&
		!strings.HasPrefix(c.Fleet.Heroku.APIURL, "http://") && !strings.HasPrefix(c.Fleet.Heroku.APIURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "fleet.heroku.api_url",
			Value:   c.Fleet.Heroku.APIURL,
			Message: "must be an http(s) URL",
		})
	}

	return errors
}

// validateTelemetry validates the TelemetryConfig
func (c *Config) validateTelemetry() []ValidationError {
	var errors []ValidationError

	es := c.Telemetry.Elasticsearch
	if es.Enabled() && es.Index == "" {
		errors = append(errors, ValidationError{
			Field:   "telemetry.elasticsearch.index",
			Value:   es.Index,
			Message: "cannot be empty when addresses are set",
		})
	}
	if es.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "telemetry.elasticsearch.timeout",
			Value:   es.Timeout,
			Message: "must be non-negative (0 disables timeout)",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
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

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Enabled && c.Server.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "server.address",
			Value:   c.Server.Address,
			Message: "cannot be empty when the server is enabled",
		})
	}

	return errors
}
