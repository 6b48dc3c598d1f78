// Package errors provides structured error types for the aspector tool.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across all commands
//   - Machine-readable error codes for exit-status mapping
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - MANIFEST_*: Manifest reading and editing failures
//   - GRAPH/CYCLE/VERIFY: Workspace analysis failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid feature name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMetadata, origErr, "cargo metadata failed in %s", dir)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidFeature Code = "INVALID_FEATURE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeLeafNotFound Code = "LEAF_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Workspace metadata errors
	ErrCodeMetadata Code = "METADATA_ERROR"

	// Graph construction and ordering errors
	ErrCodeGraph Code = "GRAPH_ERROR"
	ErrCodeCycle Code = "CYCLE_ERROR"

	// Manifest reading and editing errors
	ErrCodeManifestParse Code = "MANIFEST_PARSE_ERROR"
	ErrCodeManifestShape Code = "MANIFEST_SHAPE_ERROR"
	ErrCodeWrite         Code = "WRITE_ERROR"

	// Verification errors
	ErrCodeVerifyMismatch Code = "VERIFY_MISMATCH"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// MismatchError reports manifests whose feature arrays are out of date.
// It is returned by verification runs so callers can itemize the stale
// packages and map the failure to a distinct exit status.
type MismatchError struct {
	Packages []string // Names of packages needing changes
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	if len(e.Packages) == 0 {
		return "manifests out of date"
	}
	return fmt.Sprintf("%d manifests out of date: %s", len(e.Packages), strings.Join(e.Packages, ", "))
}

// Code returns the error code for this error type.
func (e *MismatchError) Code() Code {
	return ErrCodeVerifyMismatch
}

// IsVerifyMismatch reports whether err represents a verification failure.
// It matches both *MismatchError and coded errors carrying ErrCodeVerifyMismatch.
func IsVerifyMismatch(err error) bool {
	var m *MismatchError
	if errors.As(err, &m) {
		return true
	}
	return Is(err, ErrCodeVerifyMismatch)
}
