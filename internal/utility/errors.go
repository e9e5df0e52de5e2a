package utility

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration         = errors.New("invalid utility configuration")
	ErrUnknownVariant        = errors.New("unknown variant")
	ErrMissingParameter      = errors.New("missing parameter")
	ErrSubsistenceViolation  = errors.New("input at or below subsistence")
	ErrInvalidDerivativePath = errors.New("invalid derivative path")
	ErrNumerical             = errors.New("numerical error")
	ErrRecursionLimit        = errors.New("composition depth limit exceeded")
)

// SubsistenceViolationError reports a parameter whose resolved input does not
// clear its subsistence level. Callers usually treat it as an infeasible
// allocation rather than a bug.
type SubsistenceViolationError struct {
	Variant     string
	Parameter   string
	Value       float64
	Subsistence float64
}

func (e *SubsistenceViolationError) Error() string {
	return fmt.Sprintf("%s: variant=%s parameter=%s value=%g subsistence=%g",
		ErrSubsistenceViolation, e.Variant, e.Parameter, e.Value, e.Subsistence)
}

func (e *SubsistenceViolationError) Unwrap() error {
	return ErrSubsistenceViolation
}

// NumericalError carries the input vector that produced a non-finite result.
type NumericalError struct {
	Variant string
	Formula string
	Op      string
	Inputs  []float64
	Result  float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: variant=%s formula=%s op=%s inputs=%v result=%g",
		ErrNumerical, e.Variant, e.Formula, e.Op, e.Inputs, e.Result)
}

func (e *NumericalError) Unwrap() error {
	return ErrNumerical
}
