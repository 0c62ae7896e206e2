// Package validation carries the local input-rejection error shared by the
// session and messaging flows.
package validation

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *Error through errors.Is.
var ErrValidation = errors.New("validation failed")

// Error reports a field that was rejected before any network call.
type Error struct {
	Field  string
	Reason string
}

// New builds a validation error for field.
func New(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets callers test for the ErrValidation sentinel.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}
