package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a scenario is not found
	ErrNotFound = errors.New("scenario not found")

	// ErrNotRecording is returned when stopping while no recording is active
	ErrNotRecording = errors.New("no recording in progress")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
