package utility

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"utilityfn/internal/formula"
)

const DefaultMaxDepth = 64

type Kind int

const (
	KindIndex Kind = iota + 1
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Variant is a registered formula plus its parameter and coefficient schema.
// Parameters and Coefficients are sorted.
type Variant struct {
	Name         string
	Kind         Kind
	Formula      string
	Parameters   []string
	Coefficients []string
}

func (v Variant) clone() Variant {
	v.Parameters = slices.Clone(v.Parameters)
	v.Coefficients = slices.Clone(v.Coefficients)
	return v
}

func (v Variant) sameTemplate(other Variant) bool {
	return v.Kind == other.Kind &&
		v.Formula == other.Formula &&
		slices.Equal(v.Parameters, other.Parameters) &&
		slices.Equal(v.Coefficients, other.Coefficients)
}

type registeredVariant struct {
	variant  Variant
	function formula.Function
	index    formula.Index
}

// binding is the immutable per-node view of a registered variant.
type binding struct {
	variant  Variant
	function formula.Function
	index    formula.Index
	maxDepth int
	logger   *slog.Logger
}

func (b *binding) parameterIndex(name string) int {
	i, ok := slices.BinarySearch(b.variant.Parameters, name)
	if !ok {
		return -1
	}
	return i
}

type RegistryOption func(*Registry)

// WithMaxDepth bounds nested evaluation and differentiation depth.
func WithMaxDepth(depth int) RegistryOption {
	return func(r *Registry) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry holds registered variants and creates nodes bound to them. It is
// safe for concurrent use; registration normally happens once at startup.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]registeredVariant
	maxDepth int
	logger   *slog.Logger
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		variants: make(map[string]registeredVariant),
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterIndex registers an index variant over the named index formula.
func (r *Registry) RegisterIndex(name, formulaID string, parameters []string) error {
	f, err := formula.LookupIndex(formulaID)
	if err != nil {
		return fmt.Errorf("%w: variant %s: %v", ErrConfiguration, name, err)
	}
	variant, err := newVariant(name, KindIndex, formulaID, parameters, nil)
	if err != nil {
		return err
	}
	return r.store(registeredVariant{variant: variant, index: f})
}

// RegisterFunction registers a function variant over the named function formula.
// Every coefficient the formula reads must be declared.
func (r *Registry) RegisterFunction(name, formulaID string, parameters, coefficients []string) error {
	f, err := formula.LookupFunction(formulaID)
	if err != nil {
		return fmt.Errorf("%w: variant %s: %v", ErrConfiguration, name, err)
	}
	variant, err := newVariant(name, KindFunction, formulaID, parameters, coefficients)
	if err != nil {
		return err
	}
	for _, required := range f.Coefficients {
		if _, ok := slices.BinarySearch(variant.Coefficients, required); !ok {
			return fmt.Errorf("%w: variant %s: formula %s requires coefficient %q", ErrConfiguration, name, formulaID, required)
		}
	}
	return r.store(registeredVariant{variant: variant, function: f})
}

func newVariant(name string, kind Kind, formulaID string, parameters, coefficients []string) (Variant, error) {
	if name == "" {
		return Variant{}, fmt.Errorf("%w: variant name is required", ErrConfiguration)
	}
	if len(parameters) == 0 {
		return Variant{}, fmt.Errorf("%w: variant %s: parameters are required", ErrConfiguration, name)
	}
	params, err := sortedNames(name, "parameter", parameters)
	if err != nil {
		return Variant{}, err
	}
	coefs, err := sortedNames(name, "coefficient", coefficients)
	if err != nil {
		return Variant{}, err
	}
	return Variant{
		Name:         name,
		Kind:         kind,
		Formula:      formulaID,
		Parameters:   params,
		Coefficients: coefs,
	}, nil
}

func sortedNames(variant, what string, names []string) ([]string, error) {
	out := slices.Clone(names)
	sort.Strings(out)
	for i, n := range out {
		if n == "" {
			return nil, fmt.Errorf("%w: variant %s: empty %s name", ErrConfiguration, variant, what)
		}
		if i > 0 && out[i-1] == n {
			return nil, fmt.Errorf("%w: variant %s: duplicate %s %q", ErrConfiguration, variant, what, n)
		}
	}
	return out, nil
}

func (r *Registry) store(entry registeredVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := entry.variant.Name
	if existing, ok := r.variants[name]; ok {
		if existing.variant.sameTemplate(entry.variant) {
			return nil
		}
		return fmt.Errorf("%w: variant %s already registered with a different template", ErrConfiguration, name)
	}
	r.variants[name] = entry
	r.logger.Debug("variant registered",
		"variant", name,
		"kind", entry.variant.Kind.String(),
		"formula", entry.variant.Formula,
		"parameters", entry.variant.Parameters,
	)
	return nil
}

func (r *Registry) lookup(name string, kind Kind) (*binding, error) {
	r.mu.RLock()
	entry, ok := r.variants[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
	}
	if entry.variant.Kind != kind {
		return nil, fmt.Errorf("%w: variant %s is a %s variant, not %s", ErrConfiguration, name, entry.variant.Kind, kind)
	}
	return &binding{
		variant:  entry.variant.clone(),
		function: entry.function,
		index:    entry.index,
		maxDepth: r.maxDepth,
		logger:   r.logger,
	}, nil
}

// Variant returns a copy of the named variant.
func (r *Registry) Variant(name string) (Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.variants[name]
	if !ok {
		return Variant{}, false
	}
	return entry.variant.clone(), true
}

// Variants returns all registered variants sorted by name.
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Variant, 0, len(r.variants))
	for _, entry := range r.variants {
		out = append(out, entry.variant.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateIndex constructs an index node bound to a registered index variant.
func (r *Registry) CreateIndex(name string, cfg IndexConfig) (*IndexNode, error) {
	b, err := r.lookup(name, KindIndex)
	if err != nil {
		return nil, err
	}
	return newIndexNode(b, cfg)
}

// CreateFunction constructs a function node bound to a registered function variant.
func (r *Registry) CreateFunction(name string, cfg FunctionConfig) (*FunctionNode, error) {
	b, err := r.lookup(name, KindFunction)
	if err != nil {
		return nil, err
	}
	return newFunctionNode(b, cfg)
}
