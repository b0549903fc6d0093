// Package shared contains common domain types and errors that are used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// Precondition errors are configuration or input mistakes, never transient.
	ErrPrecondition = errors.New("precondition violated")

	// External process errors
	ErrRendering          = errors.New("rendering failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "academic", "ranking", "report"
	Op      string // Operation that failed, e.g., "Collect", "Convert"
	Kind    error  // Base error type for errors.Is() checking
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

// Academic record errors
var (
	ErrStudentNotFound  = NewDomainError("academic", "FindStudent", ErrNotFound, "student not found")
	ErrSubjectNotFound  = NewDomainError("academic", "FindSubject", ErrNotFound, "subject not found")
	ErrPeriodNotFound   = NewDomainError("academic", "FindPeriod", ErrNotFound, "period not found")
	ErrClassNotFound    = NewDomainError("academic", "FindClass", ErrNotFound, "class not found")
	ErrNoActivePeriod   = NewDomainError("academic", "ActivePeriod", ErrPrecondition, "no active period configured")
	ErrInvalidSchoolDay = NewDomainError("academic", "Validate", ErrValueOutOfRange, "assumed school days cannot be negative")
)

// Report errors
var (
	ErrInvalidReportMode = NewDomainError("report", "Validate", ErrInvalidInput, "unknown report mode")
	ErrMissingTarget     = NewDomainError("report", "Validate", ErrInvalidInput, "report target is required for this mode")
	ErrRenderSlotBusy    = NewDomainError("report", "AcquireSlot", ErrRateLimited, "all render slots are busy")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPrecondition checks if the error is a precondition violation.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRendering checks if the error comes from the document rendering boundary.
func IsRendering(err error) bool {
	return errors.Is(err, ErrRendering) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
