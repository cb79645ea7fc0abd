// Package apperr holds the error taxonomy shared by the scheduler, the store
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindCertification Kind = "certification"
	KindInternal      Kind = "internal"
)

// Error is a classified error. Details carries structured context for the
// caller, e.g. the conflicting blocks of a scheduling conflict.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity.
func NotFound(entity string, id interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Validation reports input rejected before any persistence attempt.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an overlapping machine or employee commitment.
func Conflict(message string, details interface{}) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// Certification reports an employee assigned to a machine they are not certified for.
func Certification(employeeID, machineID uint) *Error {
	return &Error{
		Kind:    KindCertification,
		Message: fmt.Sprintf("employee %d is not certified for machine %d", employeeID, machineID),
	}
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool      { return err != nil && KindOf(err) == KindNotFound }
func IsValidation(err error) bool    { return err != nil && KindOf(err) == KindValidation }
func IsConflict(err error) bool      { return err != nil && KindOf(err) == KindConflict }
func IsCertification(err error) bool { return err != nil && KindOf(err) == KindCertification }
