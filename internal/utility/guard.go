package utility

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// firstNonFinite returns the index of the first NaN or Inf, or -1.
func firstNonFinite(values []float64) int {
	for i, v := range values {
		if !isFinite(v) {
			return i
		}
	}
	return -1
}

// guardedCall runs a formula invocation and converts a non-finite result into a
// NumericalError. Go does not raise on IEEE exceptional conditions, so the
// result check is where overflow, log of non-positive and division by zero
// surface.
func (b *binding) guardedCall(op string, inputs []float64, fn func() float64) (float64, error) {
	result := fn()
	if isFinite(result) {
		return result, nil
	}
	err := &NumericalError{
		Variant: b.variant.Name,
		Formula: b.variant.Formula,
		Op:      op,
		Inputs:  append([]float64(nil), inputs...),
		Result:  result,
	}
	b.logger.Debug("numerical guard tripped",
		"variant", err.Variant,
		"formula", err.Formula,
		"op", op,
		"inputs", err.Inputs,
		"result", result,
	)
	return 0, err
}
