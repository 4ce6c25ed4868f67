// Package apperrors defines the error taxonomy shared by the admin services.
//
// Services return *Error values; the HTTP layer maps each Kind onto a status
// code (see httputil.WriteServiceError). Storage failures that are not one of
// the user-facing kinds are wrapped as Infrastructure errors.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindAuthorization  Kind = "authorization"
	KindIntegrityGuard Kind = "integrity_guard"
	KindInfrastructure Kind = "infrastructure"
)

// Error is the concrete error type returned by services
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field validation messages
	Fields map[string]string
	// Reason is a stable machine-readable code, used by authorization denials
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation error with optional field messages
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// FieldError creates a validation error for a single field
func FieldError(field, message string) *Error {
	return Validation(message, map[string]string{field: message})
}

// NotFound creates a not found error for a resource
func NotFound(resource string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %v", resource, id)}
}

// Conflict creates a conflict error
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Forbidden creates an authorization error with a denial reason
func Forbidden(reason, message string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason, Message: message}
}

// IntegrityGuard creates an error for operations that are never allowed
func IntegrityGuard(message string) *Error {
	return &Error{Kind: KindIntegrityGuard, Message: message}
}

// Infrastructure wraps a storage or cache failure
func Infrastructure(message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInfrastructure for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// As extracts the *Error from err
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsAuthorization reports whether err is an authorization denial
func IsAuthorization(err error) bool { return is(err, KindAuthorization) }

// IsIntegrityGuard reports whether err is an integrity guard rejection
func IsIntegrityGuard(err error) bool { return is(err, KindIntegrityGuard) }
