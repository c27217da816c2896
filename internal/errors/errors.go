// Package errors provides centralized error definitions and error handling utilities
// for dynoscaler. It defines the error taxonomy of the control loop, error
// constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Each error type maps to one stage of the control loop:
//   - ConfigError: invalid static configuration, fatal at startup
//   - MetricFetchError: the cycle could not sample queue depth or fleet size
//   - CommandError: the resize command failed or was rejected
//   - TelemetryError: a telemetry sink could not record a cycle
//
// Only ConfigError stops the process. The other three are per-cycle and are
// converted into telemetry by the loop.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewMetricFetchError("cloudwatch", cause).WithQueue("jobs")
//	err := errors.NewCommandError(errors.CommandRejected, "heroku", nil).WithStatusCode(422)
//
// Checking errors:
//
//	var cmdErr *errors.CommandError
//	if errors.As(err, &cmdErr) { ... }
//
//	// Telemetry classification
//	kind := errors.KindOf(err) // "CommandError"
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is   = errors.Is
	As   = errors.As
	New  = errors.New
	Join = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind names used in telemetry documents.
const (
	KindConfig      = "ConfigError"
	KindMetricFetch = "MetricFetchError"
	KindCommand     = "CommandError"
	KindTelemetry   = "TelemetryError"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration sentinel errors
var (
	// ErrInvalidCycles indicates that the scale cycle counts are not usable.
	ErrInvalidCycles = New("invalid scale cycles")
	// ErrInvalidBounds indicates that the min/max instance bounds are not usable.
	ErrInvalidBounds = New("invalid instance bounds")
	// ErrMissingSetting indicates that a required setting is empty.
	ErrMissingSetting = New("required setting missing")
	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = New("unknown provider")
)

// Cycle sentinel errors
var (
	// ErrNoDatapoints indicates that the metric response did not contain the requested series.
	ErrNoDatapoints = New("metric series missing from response")
	// ErrNoFormation indicates that the fleet API returned no formation for the process.
	ErrNoFormation = New("no formation found")
	// ErrBadStatusCode indicates a non-success HTTP status from a remote API.
	ErrBadStatusCode = New("bad status code")
	// ErrDecodeResponse indicates a response body that could not be decoded.
	ErrDecodeResponse = New("unable to decode response")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ScalerError is the base interface for all dynoscaler errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ScalerError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the next cycle may succeed where this one failed.
	IsRetryable() bool

	// Kind returns the taxonomy name recorded in telemetry.
	Kind() string
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// format renders "<prefix> [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// ConfigError
// -----------------------------------------------------------------------------

// ConfigError represents invalid static configuration. It is fatal: the
// control loop never starts.
//
// Example:
//
//	err := errors.NewConfigError("cycles must be at least 1", errors.ErrInvalidCycles).
//	    WithField("scaler.up_cycles")
//	fmt.Println(err) // "config error [field=scaler.up_cycles]: cycles must be at least 1: invalid scale cycles"
type ConfigError struct {
	baseError
	Field string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityCritical,
			retryable: false,
		},
	}
}

// WithField adds the offending config key to the error context.
func (e *ConfigError) WithField(field string) *ConfigError {
	e.Field = field
	return e
}

// Kind returns KindConfig.
func (e *ConfigError) Kind() string { return KindConfig }

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	return e.format("config error", parts)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// MetricFetchError
// -----------------------------------------------------------------------------

// MetricFetchError represents a failed sample. The cycle skips its decision
// and the engine state is left unchanged.
//
// Example:
//
//	err := errors.NewMetricFetchError("cloudwatch", cause).WithQueue("jobs")
type MetricFetchError struct {
	baseError
	Source string
	Queue  string
}

// NewMetricFetchError creates a new MetricFetchError for the named source.
func NewMetricFetchError(source string, cause error) *MetricFetchError {
	return &MetricFetchError{
		baseError: baseError{
			message:   "failed to sample " + source,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		Source: source,
	}
}

// WithQueue adds the queue name to the error context.
func (e *MetricFetchError) WithQueue(queue string) *MetricFetchError {
	e.Queue = queue
	return e
}

// Kind returns KindMetricFetch.
func (e *MetricFetchError) Kind() string { return KindMetricFetch }

// Error returns the formatted error message.
func (e *MetricFetchError) Error() string {
	var parts []string
	if e.Queue != "" {
		parts = append(parts, fmt.Sprintf("queue=%s", e.Queue))
	}
	return e.format("metric fetch error", parts)
}

// Is checks if this error matches the target.
func (e *MetricFetchError) Is(target error) bool {
	if _, ok := target.(*MetricFetchError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// CommandError
// -----------------------------------------------------------------------------

// CommandOutcome distinguishes the two ways a resize can fail.
type CommandOutcome string

const (
	// CommandTransient means the call did not complete (network or API client error).
	CommandTransient CommandOutcome = "transient"
	// CommandRejected means the API answered with a non-success status.
	CommandRejected CommandOutcome = "rejected"
)

// CommandError represents a resize command that did not succeed. It is
// reported but never retried within the cycle and never rolls back the
// hysteresis counters.
//
// Example:
//
//	err := errors.NewCommandError(errors.CommandRejected, "heroku", nil).
//	    WithStatusCode(422).WithTarget(3)
type CommandError struct {
	baseError
	Outcome    CommandOutcome
	Controller string
	StatusCode int
	Target     int
}

// NewCommandError creates a new CommandError.
func NewCommandError(outcome CommandOutcome, controller string, cause error) *CommandError {
	return &CommandError{
		baseError: baseError{
			message:   fmt.Sprintf("resize %s", outcome),
			cause:     cause,
			severity:  SeverityError,
			retryable: outcome == CommandTransient,
		},
		Outcome:    outcome,
		Controller: controller,
	}
}

// WithStatusCode adds the remote status code to the error context.
func (e *CommandError) WithStatusCode(code int) *CommandError {
	e.StatusCode = code
	return e
}

// WithTarget adds the requested fleet size to the error context.
func (e *CommandError) WithTarget(n int) *CommandError {
	e.Target = n
	return e
}

// Kind returns KindCommand.
func (e *CommandError) Kind() string { return KindCommand }

// Error returns the formatted error message.
func (e *CommandError) Error() string {
	var parts []string
	if e.Controller != "" {
		parts = append(parts, fmt.Sprintf("controller=%s", e.Controller))
	}
	if e.Target > 0 {
		parts = append(parts, fmt.Sprintf("target=%d", e.Target))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	return e.format("command error", parts)
}

// Is checks if this error matches the target.
func (e *CommandError) Is(target error) bool {
	if _, ok := target.(*CommandError); ok {
		return true
	}
	if e.Outcome == CommandRejected && errors.Is(target, ErrBadStatusCode) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// TelemetryError
// -----------------------------------------------------------------------------

// TelemetryError represents a sink that could not record a cycle. It is
// logged locally and never surfaced to the control path.
type TelemetryError struct {
	baseError
	Sink string
}

// NewTelemetryError creates a new TelemetryError for the named sink.
func NewTelemetryError(sink string, cause error) *TelemetryError {
	return &TelemetryError{
		baseError: baseError{
			message:   "failed to record cycle",
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		Sink: sink,
	}
}

// Kind returns KindTelemetry.
func (e *TelemetryError) Kind() string { return KindTelemetry }

// Error returns the formatted error message.
func (e *TelemetryError) Error() string {
	var parts []string
	if e.Sink != "" {
		parts = append(parts, fmt.Sprintf("sink=%s", e.Sink))
	}
	return e.format("telemetry error", parts)
}

// Is checks if this error matches the target.
func (e *TelemetryError) Is(target error) bool {
	if _, ok := target.(*TelemetryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the taxonomy name of err, or "" for nil.
// Errors outside the taxonomy are reported as "Error".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var scalerErr ScalerError
	if As(err, &scalerErr) {
		return scalerErr.Kind()
	}
	return "Error"
}

// IsRetryable returns true if the error represents a transient condition
// that the next scheduled cycle may clear.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var scalerErr ScalerError
	if As(err, &scalerErr) {
		return scalerErr.IsRetryable()
	}
	return false
}

// IsFatal returns true if the error must stop the process.
func IsFatal(err error) bool {
	var cfgErr *ConfigError
	return As(err, &cfgErr)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ScalerError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var scalerErr ScalerError
	if As(err, &scalerErr) {
		return scalerErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to list formations")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
