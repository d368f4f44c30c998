package app

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any persistence attempt.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers both missing rows and rows owned by another user.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
