package domain

import (
	"errors"
	"fmt"
)

// ErrLoad indicates the uploaded workbook could not be read as tabular data.
var ErrLoad = errors.New("workbook could not be loaded")

// ErrInvalidRequest indicates a structurally invalid extraction request.
var ErrInvalidRequest = errors.New("invalid extraction request")

// ErrInvalidRange indicates an interval whose lower bound is not below its upper bound.
var ErrInvalidRange = errors.New("invalid m/z range")

// LoadError wraps the reason a workbook failed to load.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load workbook: %v", e.Err)
	}
	return fmt.Sprintf("load workbook %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// NewLoadError creates a new LoadError.
func NewLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Err: err}
}

// RangeError reports the offending bounds of a rejected interval.
type RangeError struct {
	Low  float64
	High float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid m/z range %g-%g: min must be less than max", e.Low, e.High)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

func invalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
