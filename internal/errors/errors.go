// Package errors defines the error values shared by the storefront layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = stderrors.New("not found")

	// ErrUnauthenticated is returned by session-bound operations without a signed-in user.
	ErrUnauthenticated = stderrors.New("authentication required")

	// ErrEmptyCart is returned when checkout is attempted without items.
	ErrEmptyCart = stderrors.New("cart is empty")
)

// ValidationError reports a precondition failure on a single input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}
