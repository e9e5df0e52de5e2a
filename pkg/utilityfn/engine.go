// Package utilityfn is the public entry point to the utility function engine:
// variant registration, index and function nodes, chain-rule derivatives, and
// a Client that loads model files, evaluates them and records the results.
package utilityfn

import (
	"utilityfn/internal/formula"
	"utilityfn/internal/model"
	"utilityfn/internal/storage"
	"utilityfn/internal/utility"
)

type (
	Args              = utility.Args
	ExecuteFunc       = utility.ExecuteFunc
	Source            = utility.Source
	Differentiable    = utility.Differentiable
	Constant          = utility.Constant
	SourceFunc        = utility.SourceFunc
	Registry          = utility.Registry
	RegistryOption    = utility.RegistryOption
	Variant           = utility.Variant
	Kind              = utility.Kind
	IndexConfig       = utility.IndexConfig
	IndexNode         = utility.IndexNode
	FunctionConfig    = utility.FunctionConfig
	FunctionNode      = utility.FunctionNode
	SubsistencePolicy = utility.SubsistencePolicy

	SubsistenceViolationError = utility.SubsistenceViolationError
	NumericalError            = utility.NumericalError

	Record = model.EvaluationRecord
)

const (
	KindIndex         = utility.KindIndex
	KindFunction      = utility.KindFunction
	SubsistenceStrict = utility.SubsistenceStrict
	SubsistenceNaN    = utility.SubsistenceNaN
)

var (
	ErrConfiguration         = utility.ErrConfiguration
	ErrUnknownVariant        = utility.ErrUnknownVariant
	ErrMissingParameter      = utility.ErrMissingParameter
	ErrSubsistenceViolation  = utility.ErrSubsistenceViolation
	ErrInvalidDerivativePath = utility.ErrInvalidDerivativePath
	ErrNumerical             = utility.ErrNumerical
	ErrRecursionLimit        = utility.ErrRecursionLimit
)

func NewRegistry(opts ...RegistryOption) *Registry { return utility.NewRegistry(opts...) }

func WithMaxDepth(depth int) RegistryOption { return utility.WithMaxDepth(depth) }

// Float returns a pointer to v for the optional Amplitude and DiminishRate
// fields.
func Float(v float64) *float64 { return utility.Float(v) }

func NormalizeWeights(weights []float64) []float64 { return utility.NormalizeWeights(weights) }

// DefaultStoreKind is "sqlite" in builds tagged sqlite and "memory" otherwise.
func DefaultStoreKind() string { return storage.DefaultStoreKind() }

// FunctionFormulas lists formula ids usable by function variants.
func FunctionFormulas() []string { return formula.ListFunctionFormulas() }

// IndexFormulas lists formula ids usable by index variants.
func IndexFormulas() []string { return formula.ListIndexFormulas() }
