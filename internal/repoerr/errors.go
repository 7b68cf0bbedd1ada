// Package repoerr defines the error taxonomy shared by the query engine, the
// storage adapters and the sequence generator.
//
// A "no result" outcome for single-item queries is never an error; the
// NotFound code exists for the sequence counter contract only, where an
// adapter reports a missing record so the generator can initialize it.
package repoerr

import (
	"errors"
	"fmt"
)

// Code categorizes errors.
type Code string

const (
	// CodeValidation indicates a malformed query descriptor or argument.
	// Raised before anything reaches a storage port.
	CodeValidation Code = "VALIDATION"

	// CodeStorageFailure indicates the storage port failed: connectivity,
	// constraint violation, timeout or cancellation.
	CodeStorageFailure Code = "STORAGE_FAILURE"

	// CodeConcurrencyConflict indicates a lost creation race on a uniquely
	// keyed record, such as two callers initializing the same sequence.
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"

	// CodeNotFound indicates a counter record does not exist.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed (e.g. "find", "sequence.next").
	Op string

	// Field names the offending field for validation errors.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation error for the given field.
func Validation(field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeValidation,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Storage wraps a storage port error. Errors that already carry a code are
// returned unchanged so the original category propagates to the caller.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Code: CodeStorageFailure, Op: op, Err: err}
}

// Conflict creates a concurrency conflict error.
func Conflict(op, message string, err error) *Error {
	return &Error{Code: CodeConcurrencyConflict, Op: op, Message: message, Err: err}
}

// NotFound creates a not-found error for a counter record.
func NotFound(op, message string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: message}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsStorageFailure returns true if err is a storage failure.
func IsStorageFailure(err error) bool {
	return CodeOf(err) == CodeStorageFailure
}

// IsConflict returns true if err is a concurrency conflict.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConcurrencyConflict
}

// IsNotFound returns true if err reports a missing counter record.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
