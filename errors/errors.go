// Package errors provides the structured error taxonomy shared by agents
// and collaborators. Codes identify what failed (parsing, embedding,
// search, generation, correlation timeout); categories drive retry
// decisions in the LLM and embedding clients. Errors cross the bus only as
// Error-kind envelope payloads, never as Go values.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is a structured error carrying a code, category, and cause chain.
type Error struct {
	code     Code
	category Category
	message  string
	cause    error
}

// New creates a structured error with the code's default category.
func New(code Code, message string) *Error {
	return &Error{
		code:     code,
		category: code.DefaultCategory(),
		message:  message,
	}
}

// Newf creates a structured error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with a code and message, preserving the chain.
// Returns nil if err is nil. Wrapping an *Error keeps the inner code
// unless code is CodeInternal.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	var inner *Error
	if stderrors.As(err, &inner) && code == CodeInternal {
		code = inner.code
	}
	e := New(code, message)
	e.cause = err
	return e
}

// Error returns the error message including the cause.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the failure code.
func (e *Error) Code() Code {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() Category {
	return e.category
}

// Retryable returns whether the operation may succeed on retry.
func (e *Error) Retryable() bool {
	return e.category.IsRetryable()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the code from any error in the chain. Plain errors map
// to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return CodeInternal
}

// Retryable reports whether any error in the chain is retryable. Plain
// errors are not.
func Retryable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// Is, As, and Join from the standard library work on *Error via Unwrap;
// these aliases let callers avoid a second import.
var (
	As = stderrors.As
	Is = stderrors.Is
)
