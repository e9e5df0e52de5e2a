package utility

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"utilityfn/internal/formula"
)

// SubsistencePolicy selects what a FunctionNode does when an input fails to
// clear its subsistence level.
type SubsistencePolicy int

const (
	// SubsistenceStrict fails with a SubsistenceViolationError.
	SubsistenceStrict SubsistencePolicy = iota
	// SubsistenceNaN returns NaN with a nil error.
	SubsistenceNaN
)

func (p SubsistencePolicy) String() string {
	switch p {
	case SubsistenceStrict:
		return "strict"
	case SubsistenceNaN:
		return "nan"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseSubsistencePolicy accepts "strict" (or empty) and "nan".
func ParseSubsistencePolicy(s string) (SubsistencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return SubsistenceStrict, nil
	case "nan":
		return SubsistenceNaN, nil
	default:
		return 0, fmt.Errorf("%w: unknown subsistence policy %q", ErrConfiguration, s)
	}
}

// FunctionConfig configures a FunctionNode. Nil Amplitude and DiminishRate
// mean 1; an explicit zero is kept. Missing subsistences and weights default
// to 0, missing coefficients to 1. Parameters absent from Inputs are read from
// the call arguments.
type FunctionConfig struct {
	Amplitude    *float64
	DiminishRate *float64
	Subsistences map[string]float64
	Weights      map[string]float64
	Coefficients map[string]float64
	Inputs       map[string]Source
	Execute      ExecuteFunc
	Policy       SubsistencePolicy
}

// FunctionNode aggregates subsistence-shifted inputs, each either read from the
// call arguments or produced by a nested Source, and differentiates along a
// parameter path by the chain rule. It is immutable once created.
type FunctionNode struct {
	*binding
	amplitude    float64
	diminishRate float64
	subsistences []float64
	weights      []float64
	coefficients formula.Coefficients
	inputs       []Source
	execute      ExecuteFunc
	policy       SubsistencePolicy
	positive     bool
}

func newFunctionNode(b *binding, cfg FunctionConfig) (*FunctionNode, error) {
	name := b.variant.Name
	params := b.variant.Parameters

	amplitude := orOne(cfg.Amplitude)
	diminishRate := orOne(cfg.DiminishRate)
	if !isFinite(amplitude) || !isFinite(diminishRate) {
		return nil, fmt.Errorf("%w: variant %s: amplitude and diminish rate must be finite", ErrConfiguration, name)
	}
	subsistences, err := alignValues(name, "subsistence", params, cfg.Subsistences, 0)
	if err != nil {
		return nil, err
	}
	weights, err := alignWeights(name, params, cfg.Weights)
	if err != nil {
		return nil, err
	}
	coefs, err := alignValues(name, "coefficient", b.variant.Coefficients, cfg.Coefficients, 1)
	if err != nil {
		return nil, err
	}
	coefficients := formula.Coefficients(toMap(b.variant.Coefficients, coefs))
	if b.function.ValidateCoefficients != nil {
		if err := b.function.ValidateCoefficients(coefficients); err != nil {
			return nil, fmt.Errorf("%w: variant %s: %v", ErrConfiguration, name, err)
		}
	}

	inputs := make([]Source, len(params))
	for _, key := range slices.Sorted(maps.Keys(cfg.Inputs)) {
		i := b.parameterIndex(key)
		if i < 0 {
			return nil, fmt.Errorf("%w: variant %s: unknown input %q", ErrConfiguration, name, key)
		}
		if cfg.Inputs[key] == nil {
			return nil, fmt.Errorf("%w: variant %s: input %q is nil", ErrConfiguration, name, key)
		}
		inputs[i] = cfg.Inputs[key]
	}

	if cfg.Policy != SubsistenceStrict && cfg.Policy != SubsistenceNaN {
		return nil, fmt.Errorf("%w: variant %s: unknown subsistence policy %d", ErrConfiguration, name, int(cfg.Policy))
	}
	execute := cfg.Execute
	if execute == nil {
		execute = passThrough
	}
	positive := false
	if b.function.RequiresPositive != nil {
		positive = b.function.RequiresPositive(coefficients)
	}
	return &FunctionNode{
		binding:      b,
		amplitude:    amplitude,
		diminishRate: diminishRate,
		subsistences: subsistences,
		weights:      weights,
		coefficients: coefficients,
		inputs:       inputs,
		execute:      execute,
		policy:       cfg.Policy,
		positive:     positive,
	}, nil
}

func (n *FunctionNode) Variant() Variant { return n.variant.clone() }

func (n *FunctionNode) Len() int { return len(n.variant.Parameters) }

func (n *FunctionNode) Amplitude() float64 { return n.amplitude }

func (n *FunctionNode) DiminishRate() float64 { return n.diminishRate }

func (n *FunctionNode) Policy() SubsistencePolicy { return n.policy }

// Weights returns the normalized weights by parameter.
func (n *FunctionNode) Weights() map[string]float64 { return toMap(n.variant.Parameters, n.weights) }

func (n *FunctionNode) Subsistences() map[string]float64 {
	return toMap(n.variant.Parameters, n.subsistences)
}

func (n *FunctionNode) Coefficients() map[string]float64 { return maps.Clone(n.coefficients) }

// Input returns the source bound to parameter, if any.
func (n *FunctionNode) Input(parameter string) (Source, bool) {
	i := n.parameterIndex(parameter)
	if i < 0 || n.inputs[i] == nil {
		return nil, false
	}
	return n.inputs[i], true
}

// Evaluate resolves every parameter, nested sources first, and returns the
// aggregated score.
func (n *FunctionNode) Evaluate(args Args) (float64, error) {
	return n.evaluateAt(args, 0)
}

// Derivative returns d(score)/d(leaf) where path names a parameter of this
// node followed by parameters of the nested nodes bound along the way.
func (n *FunctionNode) Derivative(path []string, args Args) (float64, error) {
	return n.derivativeAt(path, args, 0)
}

func (n *FunctionNode) evaluateAt(args Args, depth int) (float64, error) {
	x, infeasible, err := n.shifted(args, depth)
	if err != nil {
		return 0, err
	}
	if infeasible {
		return math.NaN(), nil
	}
	return n.value(x)
}

func (n *FunctionNode) value(x []float64) (float64, error) {
	return n.guardedCall("value", x, func() float64 {
		return n.function.Value(n.amplitude, n.diminishRate, n.weights, x, n.coefficients)
	})
}

func (n *FunctionNode) derivativeAt(path []string, args Args, depth int) (float64, error) {
	if len(path) == 0 {
		return 0, fmt.Errorf("%w: empty path for variant %s", ErrInvalidDerivativePath, n.variant.Name)
	}
	i := n.parameterIndex(path[0])
	if i < 0 {
		return 0, fmt.Errorf("%w: variant %s has no parameter %q", ErrInvalidDerivativePath, n.variant.Name, path[0])
	}
	var nested Differentiable
	if len(path) > 1 {
		d, ok := n.inputs[i].(Differentiable)
		if !ok {
			return 0, fmt.Errorf("%w: input %q of variant %s is not differentiable", ErrInvalidDerivativePath, path[0], n.variant.Name)
		}
		nested = d
	}

	x, infeasible, err := n.shifted(args, depth)
	if err != nil {
		return 0, err
	}
	if infeasible {
		return math.NaN(), nil
	}
	if _, err := n.value(x); err != nil {
		return 0, err
	}
	local, err := n.guardedCall("derivative", x, func() float64 {
		return n.function.Derivative(n.amplitude, n.diminishRate, n.weights, x, n.coefficients, i)
	})
	if err != nil {
		return 0, err
	}
	if nested == nil {
		return local, nil
	}

	inner, err := differentiateSource(nested, path[1:], args, depth+1)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(inner) && n.policy == SubsistenceNaN {
		return math.NaN(), nil
	}
	return n.guardedCall("chain", x, func() float64 { return local * inner })
}

// shifted resolves raw inputs and subtracts subsistences. infeasible is true
// when the NaN policy swallowed a subsistence violation.
func (n *FunctionNode) shifted(args Args, depth int) ([]float64, bool, error) {
	if depth > n.maxDepth {
		return nil, false, fmt.Errorf("%w: variant %s at depth %d", ErrRecursionLimit, n.variant.Name, depth)
	}
	raw, err := n.resolve(args, depth)
	if err != nil {
		return nil, false, err
	}
	if j := firstNonFinite(raw); j >= 0 {
		if math.IsNaN(raw[j]) && n.policy == SubsistenceNaN && n.inputs[j] != nil {
			// nested node already reported an infeasible allocation
			return nil, true, nil
		}
		return nil, false, &NumericalError{
			Variant: n.variant.Name,
			Formula: n.variant.Formula,
			Op:      "input",
			Inputs:  raw,
			Result:  raw[j],
		}
	}

	x := make([]float64, len(raw))
	for i := range raw {
		x[i] = raw[i] - n.subsistences[i]
		if x[i] < 0 || (x[i] == 0 && n.positive) {
			if n.policy == SubsistenceNaN {
				return nil, true, nil
			}
			return nil, false, &SubsistenceViolationError{
				Variant:     n.variant.Name,
				Parameter:   n.variant.Parameters[i],
				Value:       raw[i],
				Subsistence: n.subsistences[i],
			}
		}
	}
	return x, false, nil
}

func (n *FunctionNode) resolve(args Args, depth int) ([]float64, error) {
	var values Args
	raw := make([]float64, len(n.variant.Parameters))
	for i, parm := range n.variant.Parameters {
		if src := n.inputs[i]; src != nil {
			v, err := evaluateSource(src, args, depth+1)
			if err != nil {
				return nil, fmt.Errorf("input %q of %s: %w", parm, n.variant.Name, err)
			}
			raw[i] = v
			continue
		}
		if values == nil {
			executed, err := n.execute(args)
			if err != nil {
				return nil, fmt.Errorf("execute %s: %w", n.variant.Name, err)
			}
			if executed == nil {
				executed = Args{}
			}
			values = executed
		}
		v, ok := values[parm]
		if !ok {
			return nil, fmt.Errorf("%w: variant %s requires %q", ErrMissingParameter, n.variant.Name, parm)
		}
		raw[i] = v
	}
	return raw, nil
}

// Key identifies the node configuration including nested sources.
func (n *FunctionNode) Key() uint64 {
	var sb strings.Builder
	sb.WriteString("function|")
	sb.WriteString(n.variant.Name)
	sb.WriteByte('|')
	sb.WriteString(n.variant.Formula)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(n.amplitude, 'g', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(n.diminishRate, 'g', -1, 64))
	sb.WriteByte('|')
	sb.WriteString(n.policy.String())
	for _, coef := range n.variant.Coefficients {
		fmt.Fprintf(&sb, "|%s=%g", coef, n.coefficients[coef])
	}
	for i, parm := range n.variant.Parameters {
		fmt.Fprintf(&sb, "|%s:%g:%g", parm, n.subsistences[i], n.weights[i])
		if n.inputs[i] != nil {
			sb.WriteString(":")
			sb.WriteString(sourceKey(n.inputs[i]))
		}
	}
	return xxhash.Sum64String(sb.String())
}

func (n *FunctionNode) String() string {
	return fmt.Sprintf("FunctionNode(variant=%s, formula=%s, amplitude=%g, diminishrate=%g, coefficients=%v, subsistences=%v, weights=%v)",
		n.variant.Name, n.variant.Formula, n.amplitude, n.diminishRate, n.Coefficients(), n.Subsistences(), n.Weights())
}
