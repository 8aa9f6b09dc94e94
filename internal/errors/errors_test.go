package errors

import (
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("city", "city is required")

	if err.Error() != "validation failed on city: city is required" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	if err.Details["city"] != "city is required" {
		t.Errorf("Expected details to carry the field message, got %v", err.Details)
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"direct", NewValidationError("quantity", "must be positive"), true},
		{"wrapped", fmt.Errorf("add item: %w", NewValidationError("quantity", "must be positive")), true},
		{"not found", ErrNotFound, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.expected {
				t.Errorf("IsValidation() = %v, want %v", got, tt.expected)
			}
		})
	}
}
