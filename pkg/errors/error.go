// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Boot/configuration errors (100-199): Fatal startup failures
//   - Risk rejections (200-299): Balance/floor/amount violations at the submission gate
//   - Execution failures (300-399): Adapter-reported swap/cancel errors
//   - Replay failures (400-499): Backtest run preconditions and data pulls
//   - Sweep failures (500-599): Per-order auto-cancel failures
//   - Feed/market errors (600-699): Event stream and historic query errors
//   - Ledger errors (700-799): Persistent order store errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeWalletNotLoaded, "wallet not loaded")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeStrategyNotFound, "no strategy registered as %q", name)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to read unsettled orders", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodePoolNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsFatalBoot reports whether the error is a fatal boot/configuration error.
// Only these are allowed to abort the whole process; everything else is
// caught at the boundary of the operation that produced it.
func IsFatalBoot(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}
