/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and handlers wrap these with context; the API maps them to
  HTTP status codes through IsClientError and IsNotFound.

ERROR CATEGORIES:
  1. Validation errors - Rejected events (bad amounts, missing fields, bad ranges)
  2. Lookup errors - Missing clients
  3. Store errors - Persistence failures, wrapped with %w by each store

NOT ERRORS:
  Missing or unparsable billing fields are never errors. They mean
  "billing not configured yet" and ComputeBillingState returns zeros.

SEE ALSO:
  - validate.go: Builds ValidationError from struct tags
  - events.go: Returns these errors from Apply
  - api/handlers.go: Maps errors to status codes
*/
package billing

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an event or form fails validation.
	// The client state is left unchanged.
	ErrValidation = errors.New("validation failed")

	// ErrClientNotFound is returned when a referenced client doesn't exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrUnknownEvent is returned by Apply for an event type it cannot reduce.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrBillingNotConfigured is returned by operations that need a billing
	// setup to exist, such as drafting a past-due letter.
	ErrBillingNotConfigured = errors.New("billing not configured")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError is one failed field check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failed field of a rejected event.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrBillingNotConfigured)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrClientNotFound)
}

// ValidationFields extracts field errors, or nil when err is not a validation error.
func ValidationFields(err error) []FieldError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
