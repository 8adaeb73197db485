// Package domain defines the core domain error types for the snapshot engine.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "SNAP-1000")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Snapshot errors (SNAP)
// ============================================================================

var (
	// ErrCorruptedSnapshot indicates a snapshot failed integrity verification:
	// a missing file, a chunk-count mismatch, or an aggregate checksum that
	// does not match the declared value.
	ErrCorruptedSnapshot = NewDomainError("SNAP-1000", "corrupted snapshot")

	// ErrIoError indicates a filesystem operation (write, rename, fsync)
	// failed. The operation is considered failed and retryable at a higher
	// layer.
	ErrIoError = NewDomainError("SNAP-1001", "snapshot io error")

	// ErrInvalidId indicates a snapshot identifier could not be parsed, or a
	// chunk declared an id that did not match the receiving handle's id.
	ErrInvalidId = NewDomainError("SNAP-1002", "invalid snapshot id")

	// ErrSuperseded indicates an attempt to persist a snapshot whose id is
	// not strictly greater than the currently committed snapshot. This is
	// not treated as a caller error: persist returns the existing, newer
	// handle and the loser is purged.
	ErrSuperseded = NewDomainError("SNAP-1003", "snapshot superseded")

	// ErrClosed indicates an operation was attempted on a store or snapshot
	// handle after close()/abort() already ran.
	ErrClosed = NewDomainError("SNAP-1004", "snapshot store closed")
)

// ============================================================================
// General-purpose errors, kept for components outside the snapshot store
// proper (CLI argument handling, config loading).
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("SNAP-5000", "internal server error")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SNAP-1100", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("SNAP-1101", "missing required argument")
)
