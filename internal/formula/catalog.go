package formula

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrFormulaExists   = errors.New("formula already registered")
	ErrFormulaNotFound = errors.New("formula not found")
)

// Coefficients holds the named extra scalars of a formula instance.
type Coefficients map[string]float64

// FunctionValueFunc evaluates a function formula over subsistence-shifted inputs x
// with normalized weights w, amplitude a and diminish rate d.
type FunctionValueFunc func(a, d float64, w, x []float64, c Coefficients) float64

// FunctionDerivativeFunc returns the partial derivative of the matching value
// function with respect to x[i].
type FunctionDerivativeFunc func(a, d float64, w, x []float64, c Coefficients, i int) float64

// IndexValueFunc evaluates an index formula over raw inputs x with tolerances t.
type IndexValueFunc func(a float64, t, w, x []float64) float64

// IndexDerivativeFunc returns the partial derivative of an index formula with respect to x[i].
type IndexDerivativeFunc func(a float64, t, w, x []float64, i int) float64

// Function is a function formula binding. Value and Derivative never change
// after registration.
type Function struct {
	ID         string
	Value      FunctionValueFunc
	Derivative FunctionDerivativeFunc
	// Coefficients lists coefficient names the formula reads.
	Coefficients []string
	// RequiresPositive reports whether shifted inputs must be strictly positive
	// for the given coefficients. Nil means never.
	RequiresPositive func(c Coefficients) bool
	// ValidateCoefficients rejects coefficient values the formula cannot use.
	// Nil accepts any finite values.
	ValidateCoefficients func(c Coefficients) error
}

// Index is an index formula binding.
type Index struct {
	ID         string
	Value      IndexValueFunc
	Derivative IndexDerivativeFunc
}

var catalog = struct {
	mu        sync.RWMutex
	functions map[string]Function
	indexes   map[string]Index
}{
	functions: make(map[string]Function),
	indexes:   make(map[string]Index),
}

func init() {
	initializeBuiltInFormulas()
}

func initializeBuiltInFormulas() {
	MustRegisterFunction(Function{
		ID:               CobbDouglas,
		Value:            cobbDouglasValue,
		Derivative:       cobbDouglasDerivative,
		RequiresPositive: func(Coefficients) bool { return true },
	})
	MustRegisterFunction(Function{
		ID:                   CES,
		Value:                cesValue,
		Derivative:           cesDerivative,
		Coefficients:         []string{"p"},
		RequiresPositive:     cesRequiresPositive,
		ValidateCoefficients: cesValidateCoefficients,
	})
	MustRegisterFunction(Function{
		ID:         Linear,
		Value:      linearValue,
		Derivative: linearDerivative,
	})

	MustRegisterIndex(Index{ID: Additive, Value: additiveValue, Derivative: additiveDerivative})
	MustRegisterIndex(Index{ID: Inverted, Value: invertedValue, Derivative: invertedDerivative})
	MustRegisterIndex(Index{ID: Tangent, Value: tangentValue, Derivative: tangentDerivative})
	MustRegisterIndex(Index{ID: RTangent, Value: rtangentValue, Derivative: rtangentDerivative})
	MustRegisterIndex(Index{ID: Logarithm, Value: logarithmValue, Derivative: logarithmDerivative})
}

// RegisterFunction adds a function formula to the process-wide catalog.
func RegisterFunction(f Function) error {
	if f.ID == "" {
		return errors.New("formula id is required")
	}
	if f.Value == nil || f.Derivative == nil {
		return fmt.Errorf("formula %s: value and derivative functions are required", f.ID)
	}

	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	if _, exists := catalog.functions[f.ID]; exists {
		return fmt.Errorf("%w: %s", ErrFormulaExists, f.ID)
	}
	f.Coefficients = append([]string(nil), f.Coefficients...)
	catalog.functions[f.ID] = f
	return nil
}

func MustRegisterFunction(f Function) {
	if err := RegisterFunction(f); err != nil {
		panic(err)
	}
}

// RegisterIndex adds an index formula to the process-wide catalog.
func RegisterIndex(f Index) error {
	if f.ID == "" {
		return errors.New("formula id is required")
	}
	if f.Value == nil {
		return fmt.Errorf("formula %s: value function is required", f.ID)
	}

	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	if _, exists := catalog.indexes[f.ID]; exists {
		return fmt.Errorf("%w: %s", ErrFormulaExists, f.ID)
	}
	catalog.indexes[f.ID] = f
	return nil
}

func MustRegisterIndex(f Index) {
	if err := RegisterIndex(f); err != nil {
		panic(err)
	}
}

func LookupFunction(id string) (Function, error) {
	catalog.mu.RLock()
	f, ok := catalog.functions[id]
	catalog.mu.RUnlock()
	if !ok {
		return Function{}, fmt.Errorf("%w: %s", ErrFormulaNotFound, id)
	}
	return f, nil
}

func LookupIndex(id string) (Index, error) {
	catalog.mu.RLock()
	f, ok := catalog.indexes[id]
	catalog.mu.RUnlock()
	if !ok {
		return Index{}, fmt.Errorf("%w: %s", ErrFormulaNotFound, id)
	}
	return f, nil
}

func ListFunctionFormulas() []string {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	ids := make([]string, 0, len(catalog.functions))
	for id := range catalog.functions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func ListIndexFormulas() []string {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	ids := make([]string, 0, len(catalog.indexes))
	for id := range catalog.indexes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func resetCatalogForTests() {
	catalog.mu.Lock()
	catalog.functions = make(map[string]Function)
	catalog.indexes = make(map[string]Index)
	catalog.mu.Unlock()
	initializeBuiltInFormulas()
}
