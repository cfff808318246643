package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every ValidationError.
var ErrInvalidInput = errors.New("salesdoc: invalid input")

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("salesdoc: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }
