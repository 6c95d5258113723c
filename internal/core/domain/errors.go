package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Services return these (wrapped in *Error or with fmt.Errorf %w)
// and the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("resource not found")
	ErrLtvExceeded          = errors.New("ltv limit exceeded")
	ErrScheduleNotAllowed   = errors.New("schedule not allowed for status")
	ErrPastDate             = errors.New("date is in the past")
	ErrConflictingReference = errors.New("conflicting reference")
)

// ErrInvalidStatus is a validation error for an unknown or disallowed status
var ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)

// Error is a domain error with a human-readable message and optional field violations
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError builds a domain error of the given kind
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Invalid builds a validation error carrying field violations
func Invalid(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

// Violations collects field-level validation failures
type Violations map[string]string

// Add records a violation for field unless one is already present
func (v Violations) Add(field, message string) {
	if _, ok := v[field]; !ok {
		v[field] = message
	}
}

// Err returns nil when empty, otherwise a validation *Error
func (v Violations) Err(message string) error {
	if len(v) == 0 {
		return nil
	}
	return Invalid(message, v)
}
