package business

import (
	"errors"
	"fmt"
)

// ErrVersionConflict is returned when a deal's optimistic-lock version has
// moved between read and write. The caller must reload and retry; results
// are never merged.
var ErrVersionConflict = errors.New("deal version conflict")

// ErrDealNotFound is returned when a deal id has no backing record.
var ErrDealNotFound = errors.New("deal not found")

// ValidationError marks caller-fixable input problems: malformed money
// strings, non-positive terms, and similar. Calculation never starts once
// one is raised.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named input field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnsupportedStateError is raised for state codes with no rule set. It is an
// environment gap, recoverable at the caller, never fatal.
type UnsupportedStateError struct {
	State string
}

func (e *UnsupportedStateError) Error() string {
	return fmt.Sprintf("no tax rules available for state %q", e.State)
}

// JurisdictionNotFoundError is raised when a ZIP code cannot be mapped to
// local tax jurisdictions. Callers fall back to state-only rates or manual
// entry.
type JurisdictionNotFoundError struct {
	Zip   string
	State string
}

func (e *JurisdictionNotFoundError) Error() string {
	return fmt.Sprintf("no jurisdiction found for zip %q in state %q", e.Zip, e.State)
}
