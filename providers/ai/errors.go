package ai

import (
	"errors"
	"fmt"

	"github.com/leofalp/switchai/internal/jsonschema"
)

// Sentinel errors for the failure classes of a call. Typed errors below wrap
// them so callers can match with errors.Is and inspect details with errors.As.
var (
	// ErrCapability marks an operation/model/input combination the provider
	// cannot serve (for example images sent to a text-only model).
	ErrCapability = errors.New("switchai: capability not supported")

	// ErrInvalidParameter marks a missing or provider-illegal parameter, or a
	// malformed request detected before any network call.
	ErrInvalidParameter = errors.New("switchai: invalid parameter")

	// ErrTranslation marks a provider response that lacks a field or shape the
	// adapter requires.
	ErrTranslation = errors.New("switchai: unexpected provider response")

	// ErrUnsupportedSchema marks a structured-output schema that cannot be
	// normalized, for example because of cyclic references.
	ErrUnsupportedSchema = jsonschema.ErrUnsupportedSchema

	// ErrMissingAPIKey is returned by providers constructed without credentials.
	ErrMissingAPIKey = errors.New("switchai: api key is not set")
)

// CapabilityError reports that a provider or model cannot perform the
// requested operation with the given input.
type CapabilityError struct {
	Provider  string
	Model     string
	Operation Operation
	Reason    string
}

func (e *CapabilityError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %s does not support %s: %s", ErrCapability, e.Provider, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s: %s model %q does not support %s: %s", ErrCapability, e.Provider, e.Model, e.Operation, e.Reason)
}

func (e *CapabilityError) Unwrap() error { return ErrCapability }

// ValidationError reports a request rejected before it reached the provider.
type ValidationError struct {
	Provider  string
	Parameter string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidParameter, e.Parameter, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s: %s", ErrInvalidParameter, e.Provider, e.Parameter, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidParameter }

// NewValidationError is a shorthand used by request adapters.
func NewValidationError(provider, parameter, format string, args ...any) *ValidationError {
	return &ValidationError{Provider: provider, Parameter: parameter, Reason: fmt.Sprintf(format, args...)}
}

// TranslationError reports that a provider response could not be mapped to
// the unified model. Field names the JSON path that was missing or malformed.
type TranslationError struct {
	Provider string
	Field    string
	Err      error
}

func (e *TranslationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: missing field %q", ErrTranslation, e.Provider, e.Field)
	}
	return fmt.Sprintf("%s: %s: field %q: %v", ErrTranslation, e.Provider, e.Field, e.Err)
}

func (e *TranslationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTranslation}
	}
	return []error{ErrTranslation, e.Err}
}

// MissingField builds a TranslationError for an absent field.
func MissingField(provider, field string) *TranslationError {
	return &TranslationError{Provider: provider, Field: field}
}

// Warning is a non-fatal notice that a parameter was coerced to a value the
// provider accepts. The call proceeded with Applied instead of Requested.
type Warning struct {
	Parameter string `json:"parameter"`
	Requested any    `json:"requested"`
	Applied   any    `json:"applied"`
	Message   string `json:"message"`
}

func (w Warning) String() string {
	return w.Message
}
