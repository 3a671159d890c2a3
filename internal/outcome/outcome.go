// Package outcome classifies the result of every core operation.
//
// An operation either succeeds, fails with a *RequestError (a violated
// precondition: nothing was committed and the reason is safe to show), or
// fails with an infrastructure fault (storage broke while a transaction was
// open: the transaction was rolled back and the caller learns nothing about
// the cause).
package outcome

import (
	"fmt"

	"emperror.dev/errors"
)

// Code categorizes request failures.
type Code string

const (
	// CodeInvalid indicates a missing or malformed field.
	CodeInvalid Code = "INVALID"

	// CodeNotFound indicates a referenced record does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeDuplicate indicates the record or grant already exists.
	CodeDuplicate Code = "DUPLICATE"

	// CodeForbidden indicates the requester may not read the record.
	CodeForbidden Code = "FORBIDDEN"
)

// RequestError is a precondition violation with a human-readable reason.
type RequestError struct {
	Code   Code
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Reject builds a RequestError with a formatted reason.
func Reject(code Code, format string, args ...any) *RequestError {
	return &RequestError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Invalid is shorthand for Reject(CodeInvalid, ...).
func Invalid(format string, args ...any) *RequestError {
	return Reject(CodeInvalid, format, args...)
}

// NotFound is shorthand for Reject(CodeNotFound, ...).
func NotFound(format string, args ...any) *RequestError {
	return Reject(CodeNotFound, format, args...)
}

// Duplicate is shorthand for Reject(CodeDuplicate, ...).
func Duplicate(format string, args ...any) *RequestError {
	return Reject(CodeDuplicate, format, args...)
}

// Forbidden is shorthand for Reject(CodeForbidden, ...).
func Forbidden(format string, args ...any) *RequestError {
	return Reject(CodeForbidden, format, args...)
}

// InfraError is an unexpected storage fault. Its message is deliberately
// opaque; the cause is reachable through Unwrap and Details for logging only.
type InfraError struct {
	Op    string
	cause error
}

// OpaqueMessage is the only text an infrastructure fault reveals.
const OpaqueMessage = "internal error"

func (e *InfraError) Error() string {
	return OpaqueMessage
}

func (e *InfraError) Unwrap() error {
	return e.cause
}

// Details returns the key/value pairs attached to the cause, including the
// operation name, suitable for a structured log line.
func (e *InfraError) Details() []any {
	details := errors.GetDetails(e.cause)
	return append([]any{"op", e.Op}, details...)
}

// Cause returns the underlying error message for logs.
func (e *InfraError) Cause() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Error()
}

// Infra wraps err as an infrastructure fault of operation op. A nil err
// yields nil, and an err that is already a fault is returned unchanged.
func Infra(op string, err error, details ...any) error {
	if err == nil {
		return nil
	}
	var existing *InfraError
	if errors.As(err, &existing) {
		return existing
	}
	cause := errors.WithStack(err)
	if len(details) > 0 {
		cause = errors.WithDetails(cause, details...)
	}
	return &InfraError{Op: op, cause: cause}
}

// IsRequestFailure reports whether err is (or wraps) a *RequestError.
func IsRequestFailure(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// IsInfrastructure reports whether err is (or wraps) an *InfraError.
func IsInfrastructure(err error) bool {
	var ie *InfraError
	return errors.As(err, &ie)
}

// CodeOf returns the request failure code carried by err, or "" if err is
// not a request failure.
func CodeOf(err error) Code {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// Is reports whether err is a request failure with the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
