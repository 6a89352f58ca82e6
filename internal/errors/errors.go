// Package errors provides centralized error definitions and error handling utilities
// for the kepler messaging facility. It defines the failure taxonomy of the
// message pool and the destination registry, typed errors that carry the
// failing operation's context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from a specific component:
//   - PoolError: allocation and release failures of the message pool
//   - DeliveryError: send and receive failures of the destination registry
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input such as an oversized payload
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewDeliveryError(errors.OpSend, errors.ErrInvalidDestination).WithDestination(255)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrQueueEmpty) { ... }
//
//	var deliveryErr *errors.DeliveryError
//	if errors.As(err, &deliveryErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Status Codes
//
// C-style callers expect 0 on success and -1 on any failure.
// [Status] preserves that boundary and [Code] exposes the refined taxonomy.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for expected conditions such as polling an empty queue.
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

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Pool-related sentinel errors
var (
	// ErrPoolExhausted indicates that every message buffer is outstanding, or
	// that the underlying storage could not provide a new one.
	ErrPoolExhausted = New("message pool exhausted")
	// ErrInvalidHandle indicates a release of a nil, foreign, queued, or
	// already released message.
	ErrInvalidHandle = New("invalid message handle")
)

// Registry-related sentinel errors
var (
	// ErrInvalidDestination indicates a send to an identifier outside the registry.
	ErrInvalidDestination = New("invalid destination")
	// ErrInvalidReceiver indicates a receive from an identifier outside the registry.
	ErrInvalidReceiver = New("invalid receiver")
	// ErrInvalidMessage indicates a send of a message the caller does not own.
	ErrInvalidMessage = New("invalid message")
	// ErrInvalidOutput indicates a receive without an output slot.
	ErrInvalidOutput = New("invalid output slot")
	// ErrQueueEmpty indicates that no message is pending for the receiver.
	ErrQueueEmpty = New("queue empty")
	// ErrInternal indicates an unexpected fault contained at the API boundary.
	ErrInternal = New("internal error")
)

// Message-related sentinel errors
var (
	// ErrPayloadTooLarge indicates a payload longer than the fixed buffer.
	ErrPayloadTooLarge = New("payload exceeds capacity")
	// ErrInvalidFrame indicates a wire frame of the wrong size.
	ErrInvalidFrame = New("invalid wire frame")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// KeplerError is the base interface for all kepler errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type KeplerError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the condition is transient and the
	// operation may succeed when attempted again.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
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

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// classify derives severity and retryability from the sentinel cause.
func classify(cause error) (Severity, bool) {
	switch {
	case errors.Is(cause, ErrQueueEmpty):
		return SeverityDebug, true
	case errors.Is(cause, ErrPoolExhausted):
		return SeverityWarning, true
	case errors.Is(cause, ErrInternal):
		return SeverityCritical, false
	default:
		return SeverityError, false
	}
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// Operation names carried by domain errors.
const (
	OpAllocate = "allocate"
	OpRelease  = "release"
	OpSend     = "send"
	OpRecv     = "recv"
	OpDrain    = "drain"
	OpPending  = "pending"
)

// PoolError represents failures of the message pool.
//
// Example:
//
//	err := errors.NewPoolError(errors.OpAllocate, errors.ErrPoolExhausted).WithUsage(2048, 2048)
//	fmt.Println(err) // "pool error [op=allocate, outstanding=2048/2048]: message pool exhausted"
type PoolError struct {
	baseError
	Op          string
	Outstanding int
	Capacity    int
}

// NewPoolError creates a new PoolError for the given operation and cause.
func NewPoolError(op string, cause error) *PoolError {
	severity, retryable := classify(cause)
	return &PoolError{
		baseError: baseError{
			message:    cause.Error(),
			cause:      cause,
			severity:   severity,
			retryable:  retryable,
			userFacing: true,
		},
		Op:          op,
		Outstanding: -1,
		Capacity:    -1,
	}
}

// WithUsage records the pool usage observed when the error occurred.
func (e *PoolError) WithUsage(outstanding, capacity int) *PoolError {
	e.Outstanding = outstanding
	e.Capacity = capacity
	return e
}

// WithMessage replaces the human-readable message, keeping the cause.
func (e *PoolError) WithMessage(message string) *PoolError {
	e.message = message
	return e
}

// Error returns the formatted error message.
func (e *PoolError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Capacity >= 0 {
		parts = append(parts, fmt.Sprintf("outstanding=%d/%d", e.Outstanding, e.Capacity))
	}

	prefix := "pool error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("pool error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil && e.message != e.cause.Error() {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PoolError) Is(target error) bool {
	if _, ok := target.(*PoolError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DeliveryError represents failures of send and receive on the registry.
//
// Example:
//
//	err := errors.NewDeliveryError(errors.OpRecv, errors.ErrQueueEmpty).WithDestination(1)
//	fmt.Println(err) // "delivery error [op=recv, destination=1]: queue empty"
type DeliveryError struct {
	baseError
	Op          string
	Destination int
	hasDest     bool
}

// NewDeliveryError creates a new DeliveryError for the given operation and cause.
func NewDeliveryError(op string, cause error) *DeliveryError {
	severity, retryable := classify(cause)
	return &DeliveryError{
		baseError: baseError{
			message:    cause.Error(),
			cause:      cause,
			severity:   severity,
			retryable:  retryable,
			userFacing: !errors.Is(cause, ErrInternal),
		},
		Op: op,
	}
}

// WithDestination adds the destination or receiver identifier to the error context.
func (e *DeliveryError) WithDestination(id int) *DeliveryError {
	e.Destination = id
	e.hasDest = true
	return e
}

// WithDetail appends a detail (such as a recovered panic value) to the message.
func (e *DeliveryError) WithDetail(detail any) *DeliveryError {
	e.message = fmt.Sprintf("%s (%v)", e.message, detail)
	return e
}

// Error returns the formatted error message.
func (e *DeliveryError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.hasDest {
		parts = append(parts, fmt.Sprintf("destination=%d", e.Destination))
	}

	prefix := "delivery error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("delivery error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DeliveryError) Is(target error) bool {
	if _, ok := target.(*DeliveryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("payload too long")
//	err = err.WithField("payload").WithValue(300)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition:
// an empty queue or an exhausted pool. Callers that want blocking semantics
// poll on these.
//
// Example:
//
//	for errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    err = reg.Recv(id, &out)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var keplerErr KeplerError
	if As(err, &keplerErr) {
		return keplerErr.IsRetryable()
	}

	return Is(err, ErrQueueEmpty) || Is(err, ErrPoolExhausted)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var keplerErr KeplerError
	if As(err, &keplerErr) {
		return keplerErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement KeplerError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var keplerErr KeplerError
	if As(err, &keplerErr) {
		return keplerErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load config")
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
