package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/ares-dev-tech/dashboard/validation"
)

var (
	// ErrNotFound covers both missing records and records of another user.
	ErrNotFound = errors.New("not_found")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation_failed")
	// ErrInvalidCredentials is returned by Authenticate.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// ValidationError carries field -> code violations.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, code := range e.Violations {
		fields = append(fields, f+"="+code)
	}
	sort.Strings(fields)
	return "validation_failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// invalid returns a *ValidationError when v holds violations, nil otherwise.
func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// invalidField is a single-field ValidationError.
func invalidField(field, code string) error {
	return &ValidationError{Violations: validation.Violations{field: code}}
}
