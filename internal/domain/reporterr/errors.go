// Package reporterr holds the error kinds the reporting pipeline tells apart.
package reporterr

import (
	"errors"
	"fmt"
)

var (
	ErrDefinitionNotFound = errors.New("report definition not found")
	ErrQueueFull          = errors.New("delivery queue is full")
	ErrQueueClosed        = errors.New("delivery queue is closed")
)

// ValidationError marks a malformed definition or manual request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError создает ошибку валидации для поля
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderError wraps a failure of the metrics or ticket source.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GenerationError marks a failed document assembly for one definition.
type GenerationError struct {
	DefinitionID string
	Err          error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate report %s: %v", e.DefinitionID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// DeliveryError marks a failed email transmission.
type DeliveryError struct {
	Recipients []string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver report to %d recipient(s): %v", len(e.Recipients), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsProvider reports whether err is or wraps a ProviderError.
func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}
