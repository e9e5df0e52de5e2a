package utility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IndexConfig configures an IndexNode. Missing tolerances default to 1,
// missing weights to 0, and a nil Amplitude means 1.
type IndexConfig struct {
	Amplitude  *float64
	Tolerances map[string]float64
	Weights    map[string]float64
	// Execute maps call arguments to parameter values. Nil passes them through.
	Execute ExecuteFunc
}

// IndexNode scores raw parameter values with a weighted, tolerance-scaled index
// formula. It has no nested inputs and is immutable once created.
type IndexNode struct {
	*binding
	amplitude  float64
	tolerances []float64
	weights    []float64
	execute    ExecuteFunc
}

func newIndexNode(b *binding, cfg IndexConfig) (*IndexNode, error) {
	params := b.variant.Parameters
	amplitude := orOne(cfg.Amplitude)
	if !isFinite(amplitude) {
		return nil, fmt.Errorf("%w: variant %s: amplitude is not finite", ErrConfiguration, b.variant.Name)
	}
	tolerances, err := alignValues(b.variant.Name, "tolerance", params, cfg.Tolerances, 1)
	if err != nil {
		return nil, err
	}
	for i, t := range tolerances {
		if t <= 0 {
			return nil, fmt.Errorf("%w: variant %s: tolerance %q must be positive", ErrConfiguration, b.variant.Name, params[i])
		}
	}
	weights, err := alignWeights(b.variant.Name, params, cfg.Weights)
	if err != nil {
		return nil, err
	}
	execute := cfg.Execute
	if execute == nil {
		execute = passThrough
	}
	return &IndexNode{
		binding:    b,
		amplitude:  amplitude,
		tolerances: tolerances,
		weights:    weights,
		execute:    execute,
	}, nil
}

func (n *IndexNode) Variant() Variant { return n.variant.clone() }

func (n *IndexNode) Len() int { return len(n.variant.Parameters) }

func (n *IndexNode) Amplitude() float64 { return n.amplitude }

// Weights returns the normalized weights by parameter.
func (n *IndexNode) Weights() map[string]float64 { return toMap(n.variant.Parameters, n.weights) }

func (n *IndexNode) Tolerances() map[string]float64 {
	return toMap(n.variant.Parameters, n.tolerances)
}

// Evaluate returns amplitude times the index formula over the executed values.
func (n *IndexNode) Evaluate(args Args) (float64, error) {
	return n.evaluateAt(args, 0)
}

// Derivative returns the partial derivative with respect to a single parameter.
// Index nodes end a derivative path, so path must have exactly one element.
func (n *IndexNode) Derivative(path []string, args Args) (float64, error) {
	return n.derivativeAt(path, args, 0)
}

func (n *IndexNode) evaluateAt(args Args, depth int) (float64, error) {
	x, err := n.resolve(args, depth)
	if err != nil {
		return 0, err
	}
	return n.guardedCall("value", x, func() float64 {
		return n.index.Value(n.amplitude, n.tolerances, n.weights, x)
	})
}

func (n *IndexNode) derivativeAt(path []string, args Args, depth int) (float64, error) {
	if len(path) != 1 {
		return 0, fmt.Errorf("%w: index variant %s ends a path, got %v", ErrInvalidDerivativePath, n.variant.Name, path)
	}
	i := n.parameterIndex(path[0])
	if i < 0 {
		return 0, fmt.Errorf("%w: variant %s has no parameter %q", ErrInvalidDerivativePath, n.variant.Name, path[0])
	}
	if n.index.Derivative == nil {
		return 0, fmt.Errorf("%w: formula %s has no derivative", ErrInvalidDerivativePath, n.variant.Formula)
	}
	x, err := n.resolve(args, depth)
	if err != nil {
		return 0, err
	}
	return n.guardedCall("derivative", x, func() float64 {
		return n.index.Derivative(n.amplitude, n.tolerances, n.weights, x, i)
	})
}

func (n *IndexNode) resolve(args Args, depth int) ([]float64, error) {
	if depth > n.maxDepth {
		return nil, fmt.Errorf("%w: variant %s at depth %d", ErrRecursionLimit, n.variant.Name, depth)
	}
	values, err := n.execute(args)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", n.variant.Name, err)
	}
	x := make([]float64, len(n.variant.Parameters))
	for i, parm := range n.variant.Parameters {
		v, ok := values[parm]
		if !ok {
			return nil, fmt.Errorf("%w: variant %s requires %q", ErrMissingParameter, n.variant.Name, parm)
		}
		x[i] = v
	}
	if firstNonFinite(x) >= 0 {
		return nil, &NumericalError{
			Variant: n.variant.Name,
			Formula: n.variant.Formula,
			Op:      "input",
			Inputs:  x,
			Result:  x[firstNonFinite(x)],
		}
	}
	return x, nil
}

// Key identifies the node configuration.
func (n *IndexNode) Key() uint64 {
	var sb strings.Builder
	sb.WriteString("index|")
	sb.WriteString(n.variant.Name)
	sb.WriteByte('|')
	sb.WriteString(n.variant.Formula)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatFloat(n.amplitude, 'g', -1, 64))
	for i, parm := range n.variant.Parameters {
		fmt.Fprintf(&sb, "|%s:%g:%g", parm, n.tolerances[i], n.weights[i])
	}
	return xxhash.Sum64String(sb.String())
}

func (n *IndexNode) String() string {
	return fmt.Sprintf("IndexNode(variant=%s, formula=%s, amplitude=%g, tolerances=%v, weights=%v)",
		n.variant.Name, n.variant.Formula, n.amplitude, n.Tolerances(), n.Weights())
}
