package utility

import (
	"fmt"
	"strconv"
)

// Args is the call-time argument bundle, keyed by parameter name.
type Args map[string]float64

// ExecuteFunc maps call-time arguments to parameter values.
type ExecuteFunc func(args Args) (Args, error)

// Source produces a parameter value from call-time arguments.
type Source interface {
	Evaluate(args Args) (float64, error)
}

// Differentiable is a Source that can continue a derivative path.
type Differentiable interface {
	Source
	Derivative(path []string, args Args) (float64, error)
}

// Constant is a Source that ignores its arguments.
type Constant float64

func (c Constant) Evaluate(Args) (float64, error) {
	return float64(c), nil
}

func (c Constant) String() string {
	return strconv.FormatFloat(float64(c), 'g', -1, 64)
}

// SourceFunc adapts a plain function, e.g. a sampler or a data-backed lookup.
type SourceFunc func(args Args) (float64, error)

func (f SourceFunc) Evaluate(args Args) (float64, error) {
	return f(args)
}

// depthAware is implemented by nodes so nested calls carry the composition depth.
type depthAware interface {
	evaluateAt(args Args, depth int) (float64, error)
	derivativeAt(path []string, args Args, depth int) (float64, error)
}

func evaluateSource(src Source, args Args, depth int) (float64, error) {
	if node, ok := src.(depthAware); ok {
		return node.evaluateAt(args, depth)
	}
	return src.Evaluate(args)
}

func differentiateSource(src Differentiable, path []string, args Args, depth int) (float64, error) {
	if node, ok := src.(depthAware); ok {
		return node.derivativeAt(path, args, depth)
	}
	return src.Derivative(path, args)
}

func passThrough(args Args) (Args, error) {
	return args, nil
}

func sourceKey(src Source) string {
	switch s := src.(type) {
	case interface{ Key() uint64 }:
		return strconv.FormatUint(s.Key(), 16)
	case Constant:
		return "const:" + s.String()
	default:
		return fmt.Sprintf("%T", src)
	}
}
