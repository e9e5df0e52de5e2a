package utility

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// NormalizeWeights divides weights by their sum. When the sum is not positive
// every weight becomes 1/len(weights). Finite weights whose sum overflows are
// scaled by the largest weight first.
func NormalizeWeights(weights []float64) []float64 {
	out := make([]float64, len(weights))
	scale := 1.0
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.IsInf(sum, 1) {
		scale = 0
		for _, w := range weights {
			scale = math.Max(scale, w)
		}
		sum = 0
		for _, w := range weights {
			sum += w / scale
		}
	}
	if sum > 0 && !math.IsInf(sum, 0) {
		for i, w := range weights {
			out[i] = (w / scale) / sum
		}
		return out
	}
	for i := range out {
		out[i] = 1 / float64(len(out))
	}
	return out
}

// alignValues lays a name-keyed map out along names, filling absent entries with
// def. Keys outside names are a configuration error.
func alignValues(variant, what string, names []string, values map[string]float64, def float64) ([]float64, error) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if _, ok := slices.BinarySearch(names, key); !ok {
			return nil, fmt.Errorf("%w: variant %s: unknown %s %q", ErrConfiguration, variant, what, key)
		}
	}
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := values[name]
		if !ok {
			v = def
		}
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: variant %s: %s %q is not finite", ErrConfiguration, variant, what, name)
		}
		out[i] = v
	}
	return out, nil
}

func alignWeights(variant string, names []string, weights map[string]float64) ([]float64, error) {
	raw, err := alignValues(variant, "weight", names, weights, 0)
	if err != nil {
		return nil, err
	}
	for i, w := range raw {
		if w < 0 {
			return nil, fmt.Errorf("%w: variant %s: weight %q is negative", ErrConfiguration, variant, names[i])
		}
	}
	return NormalizeWeights(raw), nil
}

func toMap(names []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = values[i]
	}
	return out
}

// Float returns a pointer to v for optional configuration scalars.
func Float(v float64) *float64 { return &v }

// orOne reads an optional scalar, treating nil as 1.
func orOne(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}
