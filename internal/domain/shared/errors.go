// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Every domain failure carries exactly one of them and is
// classified with errors.Is(), never by inspecting the message.
var (
	// ErrInvalidInput covers negative watch time, non-positive duration,
	// out-of-range rating or engagement levels.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound covers unknown user, lesson or record references.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict covers duplicate record creation for an existing (user, lesson) pair.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState covers operations that are illegal in the current state,
	// e.g. starting a session while one is already open.
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden covers owner-vs-admin access violations.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable covers infrastructure that cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "user", "lesson"
	Op      string // Operation that failed, e.g., "StartSession", "Rate"
	Kind    error  // Base error kind for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Invalid is a shorthand for an ErrInvalidInput domain error.
func Invalid(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Progress domain errors
var (
	ErrRecordNotFound      = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrRecordAlreadyExists = NewDomainError("progress", "Create", ErrConflict, "progress record already exists for user and lesson")
	ErrSessionAlreadyOpen  = NewDomainError("progress", "StartSession", ErrInvalidState, "a watch session is already open")
	ErrNegativeWatchTime   = NewDomainError("progress", "RecordProgress", ErrInvalidInput, "watch time must be a finite non-negative number")
	ErrNonPositiveDuration = NewDomainError("progress", "RecordProgress", ErrInvalidInput, "total duration must be a finite positive number")
	ErrInvalidRating       = NewDomainError("progress", "Rate", ErrInvalidInput, "rating must be between 1 and 5")
	ErrInvalidEngagement   = NewDomainError("progress", "UpdateEngagement", ErrInvalidInput, "engagement levels must be between 1 and 5")
	ErrNotesTooLong        = NewDomainError("progress", "UpdateEngagement", ErrInvalidInput, "notes exceed 1000 characters")
)

// Lesson domain errors
var (
	ErrLessonNotFound = NewDomainError("lesson", "Find", ErrNotFound, "lesson not found")
	ErrLessonInactive = NewDomainError("lesson", "Find", ErrInvalidState, "lesson is not active")
)

// User domain errors
var (
	ErrUserNotFound       = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrNegativePoints     = NewDomainError("user", "AddPoints", ErrInvalidInput, "points cannot be negative")
	ErrAccessDenied       = NewDomainError("user", "Authorize", ErrForbidden, "access to another user's data is not allowed")
	ErrMissingCallerIdent = NewDomainError("user", "Authorize", ErrForbidden, "caller identity is missing")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a duplicate-creation error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput checks if the error is a validation error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidState checks if the error is a state-machine violation.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsForbidden checks if the error is an access violation.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
