package formula

import (
	"errors"
	"math"
)

// Function formula identifiers.
const (
	CobbDouglas = "cobbdouglas"
	CES         = "ces"
	Linear      = "linear"
)

// Index formula identifiers.
const (
	Additive  = "additive"
	Inverted  = "inverted"
	Tangent   = "tangent"
	RTangent  = "rtangent"
	Logarithm = "logarithm"
)

// cobbDouglasCore is (prod x_i^w_i)^d, the aggregate before amplitude.
func cobbDouglasCore(d float64, w, x []float64) float64 {
	product := 1.0
	for i := range x {
		product *= math.Pow(x[i], w[i])
	}
	return math.Pow(product, d)
}

func cobbDouglasValue(a, d float64, w, x []float64, _ Coefficients) float64 {
	return cobbDouglasCore(d, w, x) * a
}

func cobbDouglasDerivative(a, d float64, w, x []float64, _ Coefficients, i int) float64 {
	value := cobbDouglasCore(d, w, x)
	return a * w[i] * d * (1 / x[i]) * value
}

func cesSum(p float64, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += math.Pow(x[i], p) * w[i]
	}
	return sum
}

func cesValue(a, d float64, w, x []float64, c Coefficients) float64 {
	p := c["p"]
	return math.Pow(cesSum(p, w, x), d/p) * a
}

func cesDerivative(a, d float64, w, x []float64, c Coefficients, i int) float64 {
	p := c["p"]
	return a * w[i] * d * math.Pow(x[i], p-1) * math.Pow(cesSum(p, w, x), d/p-1)
}

// cesValidateCoefficients rejects p == 0, where the aggregate exponent d/p
// divides by zero.
func cesValidateCoefficients(c Coefficients) error {
	p := c["p"]
	if p == 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return errors.New("ces exponent p must be finite and non-zero")
	}
	return nil
}

// cesRequiresPositive is false only for positive integer exponents, where
// x^p is defined for every real x.
func cesRequiresPositive(c Coefficients) bool {
	p := c["p"]
	return p <= 0 || p != math.Trunc(p)
}

func linearSum(w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += w[i] * x[i]
	}
	return sum
}

func linearValue(a, d float64, w, x []float64, _ Coefficients) float64 {
	return math.Pow(linearSum(w, x), d) * a
}

func linearDerivative(a, d float64, w, x []float64, _ Coefficients, i int) float64 {
	if d == 1 {
		return a * w[i]
	}
	return a * w[i] * d * math.Pow(linearSum(w, x), d-1)
}

func additiveValue(a float64, t, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += (w[i] / t[i]) * x[i]
	}
	return sum * a
}

func additiveDerivative(a float64, t, w, _ []float64, i int) float64 {
	return (w[i] / t[i]) * a
}

func invertedValue(a float64, t, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += (w[i] / t[i]) / x[i]
	}
	return sum * a
}

func invertedDerivative(a float64, t, w, x []float64, i int) float64 {
	return -(w[i] / t[i]) / (x[i] * x[i]) * a
}

func tangentValue(a float64, t, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += (w[i] / t[i]) * math.Tan(x[i]*math.Pi/2)
	}
	return sum * a
}

func tangentDerivative(a float64, t, w, x []float64, i int) float64 {
	c := math.Cos(x[i] * math.Pi / 2)
	return (w[i] / t[i]) * (math.Pi / 2) / (c * c) * a
}

func rtangentValue(a float64, t, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += (w[i] / t[i]) * math.Tan((1-x[i])*math.Pi/2)
	}
	return sum * a
}

func rtangentDerivative(a float64, t, w, x []float64, i int) float64 {
	c := math.Cos((1 - x[i]) * math.Pi / 2)
	return -(w[i] / t[i]) * (math.Pi / 2) / (c * c) * a
}

func logarithmValue(a float64, t, w, x []float64) float64 {
	sum := 0.0
	for i := range x {
		sum += (w[i] / t[i]) * math.Log(x[i]+1)
	}
	return sum * a
}

func logarithmDerivative(a float64, t, w, x []float64, i int) float64 {
	return (w[i] / t[i]) / (x[i] + 1) * a
}
