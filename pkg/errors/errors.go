// Package errors provides structured error types for hlsched.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so the CLI, the HTTP API and the benchmark runner can classify it
// without string matching:
//   - INVALID_*: malformed problem files, options or resource libraries
//   - CYCLE_DETECTED: the dependency graph is not a DAG (fatal for a run)
//   - SCHEDULER_STALLED / RUNTIME_BUDGET_EXCEEDED: a list-scheduling pass
//     could not finish (fatal for a run)
//   - ITERATION_BUDGET_EXCEEDED: the convergence loop ran out of iterations
//     (reported alongside a best-effort result, never returned as failure)
//   - INFEASIBLE_SCHEDULE: a schedule failed verification
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidResource, "unit count for %s must be positive", t)
//	if errors.Is(err, errors.ErrCodeInvalidResource) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "parse %s", path)
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
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidResource  Code = "INVALID_RESOURCE"
	ErrCodeInvalidOperation Code = "INVALID_OPERATION"
	ErrCodeInvalidPath      Code = "INVALID_PATH"
	ErrCodeInvalidOption    Code = "INVALID_OPTION"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Scheduling errors
	ErrCodeCycleDetected           Code = "CYCLE_DETECTED"
	ErrCodeSchedulerStalled        Code = "SCHEDULER_STALLED"
	ErrCodeRuntimeBudgetExceeded   Code = "RUNTIME_BUDGET_EXCEEDED"
	ErrCodeIterationBudgetExceeded Code = "ITERATION_BUDGET_EXCEEDED"
	ErrCodeInfeasibleSchedule      Code = "INFEASIBLE_SCHEDULE"

	// Backend errors
	ErrCodeStorage Code = "STORAGE_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error chain holds no *Error.
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

// IsFatal reports whether err aborts a scheduling run. Iteration budget
// exhaustion is the only scheduling condition that still yields a result.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetCode(err) != ErrCodeIterationBudgetExceeded
}
