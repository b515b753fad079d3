package model

import (
	"errors"
	"fmt"
)

// ErrValidation matches any *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrInsufficientData matches any *InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// ValidationError reports malformed or out-of-range input. It is returned before
// any computation runs, so a caller can fix the named field and resubmit.
type ValidationError struct {
	Field  string // e.g. "ratings.framing", "weights", "confidence"
	Index  int    // record index for sequence inputs; -1 when not applicable
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	field := e.Field
	if e.Index >= 0 {
		field = fmt.Sprintf("%s[%d]", e.Field, e.Index)
	}
	if e.Value != nil {
		return fmt.Sprintf("invalid %s (%v): %s", field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a ValidationError without a record index.
func Invalid(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Value: value, Reason: reason}
}

// InsufficientDataError means an analysis needs at least Required data points
// and Got were available. It is distinct from a measured zero.
type InsufficientDataError struct {
	Analysis string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d data point(s), have %d", e.Analysis, e.Required, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ValidationErrors flattens err into its ValidationError leaves, unwrapping
// wrapped errors and errors.Join trees. Returns nil when err carries none.
func ValidationErrors(err error) []*ValidationError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ValidationError:
		return []*ValidationError{e}
	case interface{ Unwrap() []error }:
		var out []*ValidationError
		for _, inner := range e.Unwrap() {
			out = append(out, ValidationErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return ValidationErrors(e.Unwrap())
	}
	return nil
}
