// Package errs provides the unified error type used across bucketgate.
//
// Every layer (storage drivers, gateway, HTTP server) wraps its native errors
// into *errs.Error before returning them to callers. Callers use the Is*
// predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindNotFound, "head object", minioErr)
//
//	// In the gateway, add operation context and keep the kind:
//	return errs.Annotate(err, "failed to get metadata")
//
//	// In a handler, check the error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing provider-specific codes.
// All backends (MinIO, AWS S3, the in-memory store) map their native errors
// to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend, malformed response
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindOperationFailed          // the backend refused or failed the operation
	ErrKindInvalidInput             // bad arguments or credentials from the caller
	ErrKindPermissionDenied         // access denied / bad signature
	ErrKindSourceNotFound           // local upload source missing or empty
	ErrKindPartialFailure           // multi-step operation stopped half way
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindOperationFailed:
		return "operation_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindSourceNotFound:
		return "source_not_found"
	case ErrKindPartialFailure:
		return "partial_failure"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all bucketgate layers.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original provider-level error, preserved for logging
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.text())
}

// text renders the message chain without repeating the kind tag of
// nested *Error causes.
func (e *Error) text() string {
	if e.Cause == nil {
		return e.Message
	}
	if inner, ok := e.Cause.(*Error); ok {
		return e.Message + ": " + inner.text()
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Annotate wraps err with msg, keeping the kind of the first *Error in its
// chain. Errors that carry no kind become ErrKindUnknown.
func Annotate(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Message: msg, Cause: err}
}

// --- Predicates ---

// IsNotFound reports whether err represents a missing object or bucket.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a transport failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsOperationFailed reports whether the backend rejected or failed the operation.
func IsOperationFailed(err error) bool {
	return KindOf(err) == ErrKindOperationFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsSourceNotFound reports whether err is a missing or empty upload source.
func IsSourceNotFound(err error) bool {
	return KindOf(err) == ErrKindSourceNotFound
}

// IsPartialFailure reports whether err left a multi-step operation half done.
// The remote state may have changed even though an error was returned.
func IsPartialFailure(err error) bool {
	return KindOf(err) == ErrKindPartialFailure
}

// KindOf extracts the ErrKind from the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// RootMessage returns the message of the innermost error that is not an
// *Error, which is usually the provider's own text.
func RootMessage(err error) string {
	if err == nil {
		return ""
	}
	for {
		e, ok := err.(*Error)
		if !ok {
			return err.Error()
		}
		if e.Cause == nil {
			return e.Message
		}
		err = e.Cause
	}
}
