// Package errs provides structured, user-friendly errors with machine-parseable codes.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-parseable error identifier.
type ErrorCode string

const (
	// General
	ErrUnknown    ErrorCode = "ERR-000"
	ErrInternal   ErrorCode = "ERR-001"
	ErrConfig     ErrorCode = "ERR-002"
	ErrValidation ErrorCode = "ERR-003"

	// Table I/O
	ErrTableRead   ErrorCode = "ERR-TABLE-001"
	ErrTableWrite  ErrorCode = "ERR-TABLE-002"
	ErrTableColumn ErrorCode = "ERR-TABLE-003"
	ErrTableFormat ErrorCode = "ERR-TABLE-004"

	// Design matrix
	ErrDesignInput    ErrorCode = "ERR-DESIGN-001"
	ErrDesignDefaults ErrorCode = "ERR-DESIGN-002"
	ErrDesignSeeds    ErrorCode = "ERR-DESIGN-003"
	ErrDesignExtern   ErrorCode = "ERR-DESIGN-004"
	ErrDesignSummary  ErrorCode = "ERR-DESIGN-005"

	// Distributions and correlations
	ErrDistUnknown ErrorCode = "ERR-DIST-001"
	ErrDistParams  ErrorCode = "ERR-DIST-002"
	ErrCorrelation ErrorCode = "ERR-CORR-001"

	// Excel input
	ErrExcelSheet ErrorCode = "ERR-EXCEL-001"
	ErrExcelValue ErrorCode = "ERR-EXCEL-002"

	// Tornado
	ErrTornadoInput     ErrorCode = "ERR-TORNADO-001"
	ErrTornadoReference ErrorCode = "ERR-TORNADO-002"

	// Webviz
	ErrWebvizConfig ErrorCode = "ERR-WEBVIZ-001"

	// Volumetrics
	ErrVolHeader ErrorCode = "ERR-VOL-001"
	ErrVolRow    ErrorCode = "ERR-VOL-002"
	ErrVolMerge  ErrorCode = "ERR-VOL-003"

	// State errors
	ErrStateRead  ErrorCode = "ERR-STATE-001"
	ErrStateWrite ErrorCode = "ERR-STATE-002"
)

// Error is the standard structured error type used across all fmutools packages.
type Error struct {
	Code     ErrorCode // Machine-parseable error code
	Op       string    // Operation chain, e.g., "design.generate.background"
	Resource string    // Resource identifier (sensitivity, file, column, ...)
	Cause    error     // Wrapped upstream error
	Advice   string    // Human-readable remediation hint
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Op, e.Resource, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the formatted user-facing error message with remediation advice.
func (e *Error) UserMessage() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Cause)
	if e.Resource != "" {
		msg += fmt.Sprintf(" (resource: %s)", e.Resource)
	}
	if e.Advice != "" {
		msg += fmt.Sprintf("\n  → %s", e.Advice)
	}
	return msg
}

// New creates a new Error.
func New(code ErrorCode, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Cause: cause}
}

// Newf creates a new Error with a formatted message as the cause.
func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Cause: fmt.Errorf(format, args...)}
}

// WithResource sets the resource identifier on an Error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithAdvice sets the human-readable remediation hint on an Error.
func (e *Error) WithAdvice(advice string) *Error {
	e.Advice = advice
	return e
}

// Wrap wraps an existing error as an Error at a new operation boundary.
// An error that already carries a code keeps it.
func Wrap(err error, code ErrorCode, op string) error {
	if err == nil {
		return nil
	}
	if inner := As(err); inner != nil {
		code = inner.Code
	}
	return &Error{Code: code, Op: op, Cause: err}
}

// IsCode reports whether err is an Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As extracts the outermost *Error from err, or returns nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
