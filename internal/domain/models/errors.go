package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrInsufficientData marks unmet statistical preconditions.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrComputation marks a degenerate numeric step. It is recovered locally.
	ErrComputation = errors.New("computation error")
	// ErrNotFound marks an unknown product.
	ErrNotFound = errors.New("not found")
)

// AnalysisError carries the failing operation alongside its kind.
type AnalysisError struct {
	Kind error
	Op   string
	Msg  string
}

func (e *AnalysisError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *AnalysisError) Unwrap() error { return e.Kind }

func NewValidationError(op, format string, args ...interface{}) error {
	return &AnalysisError{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NewInsufficientDataError(op string, have, need int) error {
	return &AnalysisError{
		Kind: ErrInsufficientData,
		Op:   op,
		Msg:  fmt.Sprintf("minimum %d data points required, got %d", need, have),
	}
}

func NewComputationError(op, format string, args ...interface{}) error {
	return &AnalysisError{Kind: ErrComputation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsClientError reports whether err should be surfaced as a caller mistake.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientData)
}
