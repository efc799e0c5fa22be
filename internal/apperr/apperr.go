// Package apperr defines the error taxonomy shared by AgriMind services.
// Domain packages wrap these sentinels so the transport layer can classify
// failures with errors.Is without knowing every domain error.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable is returned when a weather, market, or LLM source
	// is unreachable or returns malformed data.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout is returned when an upstream call exceeds its deadline.
	ErrUpstreamTimeout = fmt.Errorf("upstream timeout: %w", ErrUpstreamUnavailable)

	// ErrModelUnavailable is returned when a model artifact or model server
	// could not be loaded, disabling the capability that depends on it.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrNotFound is returned for unknown reference data such as crop names.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for out-of-range or malformed request values.
	ErrInvalidInput = errors.New("invalid input")
)

// InvalidInput wraps ErrInvalidInput with a field-specific message.
func InvalidInput(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}
