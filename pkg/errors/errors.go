// Package errors provides structured error types for stackbump.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the resolver, apply engine and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input or configuration validation failures
//   - *_NOT_FOUND: Resource not found
//   - *_FAILED: An operation that was attempted and aborted
//
// Circular dependencies are normally reported as data on a resolution. The
// CIRCULAR_DEPENDENCY code is only used when the configuration asks for
// cycles to be fatal.
//
// # Usage
//
//	err := errors.New(errors.ErrCodePackageNotFound, "package %q not found", name)
//	if errors.Is(err, errors.ErrCodePackageNotFound) {
//	    // Handle missing package
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeApplyFailed, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidPackage   Code = "INVALID_PACKAGE"
	ErrCodeInvalidVersion   Code = "INVALID_VERSION"
	ErrCodeInvalidBump      Code = "INVALID_BUMP"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInvalidTemplate  Code = "INVALID_TEMPLATE"
	ErrCodeInvalidManifest  Code = "INVALID_MANIFEST"
	ErrCodeInvalidChangeset Code = "INVALID_CHANGESET"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Resolution errors
	ErrCodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	ErrCodeGraphConstruction  Code = "GRAPH_CONSTRUCTION_FAILED"

	// Apply errors
	ErrCodeApplyFailed Code = "APPLY_FAILED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// Only the outermost *Error is inspected.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix, followed
// by the user message of the cause if there is one.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// CycleError is returned when cycles are configured to be fatal.
// It carries the rendered cycles so callers can print them without
// re-running detection.
type CycleError struct {
	Cycles []string // Rendered cycles, e.g. "a -> b -> a"
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if len(e.Cycles) == 1 {
		return fmt.Sprintf("circular dependency detected: %s", e.Cycles[0])
	}
	return fmt.Sprintf("%d circular dependencies detected", len(e.Cycles))
}

// Code returns the error code for this error type.
func (e *CycleError) Code() Code {
	return ErrCodeCircularDependency
}
