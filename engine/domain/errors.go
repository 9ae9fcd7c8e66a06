package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for group validation and lookup failures.
var (
	ErrNotFound         = errors.New("group not found")
	ErrEmptyName        = errors.New("name is empty")
	ErrNameTooLong      = errors.New("name too long")
	ErrInvalidCategory  = errors.New("unknown category")
	ErrInvalidTag       = errors.New("invalid tag")
	ErrIncludeExclude   = errors.New("vehicle in both include and exclude lists")
	ErrVacuousGroup     = errors.New("group has no criteria and no included vehicles")
	ErrYearConflict     = errors.New("year range and specific years are mutually exclusive")
	ErrYearRangeInverted = errors.New("min year after max year")
)

// ValidationError wraps a sentinel with field context.
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
