package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by state transitions. A transition that returns an
// error leaves the state untouched.
var (
	ErrUnknownField          = errors.New("unknown field")
	ErrInvalidValue          = errors.New("invalid value")
	ErrUnknownChecklistGroup = errors.New("unknown checklist group")
	ErrUnknownChecklistItem  = errors.New("unknown checklist item")
	ErrInvalidCondition      = errors.New("invalid condition")
	ErrInvalidDamageType     = errors.New("invalid damage type")
	ErrInvalidBounds         = errors.New("invalid container bounds")
	ErrRepairIndexOutOfRange = errors.New("repair index out of range")
	ErrInvalidVIN            = errors.New("invalid VIN")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// IsValidation reports whether err came from input validation in this package.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
