// Package modelconfig reads declarative utility models from YAML or TOML files
// and builds the variant registry and node tree they describe.
package modelconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"utilityfn/internal/utility"
)

var ErrInvalidModel = errors.New("invalid model")

type Format int

const (
	FormatYAML Format = iota + 1
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// Model is the file representation of a set of variants and a node tree.
type Model struct {
	Name     string        `yaml:"name" toml:"name"`
	Root     string        `yaml:"root" toml:"root"`
	Variants []VariantSpec `yaml:"variants" toml:"variants"`
	Nodes    []NodeSpec    `yaml:"nodes" toml:"nodes"`
}

type VariantSpec struct {
	Name         string   `yaml:"name" toml:"name"`
	Kind         string   `yaml:"kind" toml:"kind"`
	Formula      string   `yaml:"formula" toml:"formula"`
	Parameters   []string `yaml:"parameters" toml:"parameters"`
	Coefficients []string `yaml:"coefficients" toml:"coefficients"`
}

type NodeSpec struct {
	Name              string               `yaml:"name" toml:"name"`
	Variant           string               `yaml:"variant" toml:"variant"`
	Amplitude         *float64             `yaml:"amplitude" toml:"amplitude"`
	DiminishRate      *float64             `yaml:"diminish_rate" toml:"diminish_rate"`
	Tolerances        map[string]float64   `yaml:"tolerances" toml:"tolerances"`
	Weights           map[string]float64   `yaml:"weights" toml:"weights"`
	Subsistences      map[string]float64   `yaml:"subsistences" toml:"subsistences"`
	Coefficients      map[string]float64   `yaml:"coefficients" toml:"coefficients"`
	Inputs            map[string]InputSpec `yaml:"inputs" toml:"inputs"`
	SubsistencePolicy string               `yaml:"subsistence_policy" toml:"subsistence_policy"`
}

// InputSpec binds a parameter to another node or to a constant.
type InputSpec struct {
	Node     string   `yaml:"node" toml:"node"`
	Constant *float64 `yaml:"constant" toml:"constant"`
}

// Built is the result of building a Model.
type Built struct {
	Registry *utility.Registry
	Nodes    map[string]utility.Source
	Root     utility.Source
	RootName string
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: unsupported model file extension %q", ErrInvalidModel, filepath.Ext(path))
	}
}

func Load(path string) (*Model, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	model, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if model.Name == "" {
		model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return model, nil
}

func Parse(data []byte, format Format) (*Model, error) {
	var model Model
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &model); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalidModel, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &model); err != nil {
			return nil, fmt.Errorf("%w: toml: %v", ErrInvalidModel, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %s", ErrInvalidModel, format)
	}
	return &model, nil
}

// Build registers the model's variants into reg and constructs every node,
// nested inputs first. A nil reg gets a fresh registry.
func (m *Model) Build(reg *utility.Registry) (*Built, error) {
	if reg == nil {
		reg = utility.NewRegistry()
	}
	for _, v := range m.Variants {
		if err := registerVariant(reg, v); err != nil {
			return nil, err
		}
	}

	specs := make(map[string]NodeSpec, len(m.Nodes))
	for _, spec := range m.Nodes {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: node name is required", ErrInvalidModel)
		}
		if _, dup := specs[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalidModel, spec.Name)
		}
		specs[spec.Name] = spec
	}

	rootName := m.Root
	if rootName == "" {
		if len(m.Nodes) != 1 {
			return nil, fmt.Errorf("%w: root is required when the model has %d nodes", ErrInvalidModel, len(m.Nodes))
		}
		rootName = m.Nodes[0].Name
	}
	if _, ok := specs[rootName]; !ok {
		return nil, fmt.Errorf("%w: root node %q not defined", ErrInvalidModel, rootName)
	}

	b := &builder{
		reg:      reg,
		specs:    specs,
		built:    make(map[string]utility.Source, len(specs)),
		visiting: make(map[string]bool),
	}
	for _, spec := range m.Nodes {
		if _, err := b.build(spec.Name); err != nil {
			return nil, err
		}
	}
	return &Built{
		Registry: reg,
		Nodes:    b.built,
		Root:     b.built[rootName],
		RootName: rootName,
	}, nil
}

func registerVariant(reg *utility.Registry, v VariantSpec) error {
	switch strings.ToLower(v.Kind) {
	case "index":
		if len(v.Coefficients) > 0 {
			return fmt.Errorf("%w: index variant %s cannot declare coefficients", ErrInvalidModel, v.Name)
		}
		return reg.RegisterIndex(v.Name, v.Formula, v.Parameters)
	case "function", "":
		return reg.RegisterFunction(v.Name, v.Formula, v.Parameters, v.Coefficients)
	default:
		return fmt.Errorf("%w: variant %s has unknown kind %q", ErrInvalidModel, v.Name, v.Kind)
	}
}

type builder struct {
	reg      *utility.Registry
	specs    map[string]NodeSpec
	built    map[string]utility.Source
	visiting map[string]bool
}

func (b *builder) build(name string) (utility.Source, error) {
	if node, ok := b.built[name]; ok {
		return node, nil
	}
	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: node %q not defined", ErrInvalidModel, name)
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("%w: cycle through node %q", ErrInvalidModel, name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	variant, ok := b.reg.Variant(spec.Variant)
	if !ok {
		return nil, fmt.Errorf("node %s: %w: %s", name, utility.ErrUnknownVariant, spec.Variant)
	}

	var (
		node utility.Source
		err  error
	)
	switch variant.Kind {
	case utility.KindIndex:
		node, err = b.buildIndex(spec)
	default:
		node, err = b.buildFunction(spec)
	}
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}
	b.built[name] = node
	return node, nil
}

func (b *builder) buildIndex(spec NodeSpec) (utility.Source, error) {
	if len(spec.Inputs) > 0 || len(spec.Subsistences) > 0 || len(spec.Coefficients) > 0 {
		return nil, fmt.Errorf("%w: index nodes take no inputs, subsistences or coefficients", ErrInvalidModel)
	}
	return b.reg.CreateIndex(spec.Variant, utility.IndexConfig{
		Amplitude:  spec.Amplitude,
		Tolerances: spec.Tolerances,
		Weights:    spec.Weights,
	})
}

func (b *builder) buildFunction(spec NodeSpec) (utility.Source, error) {
	if len(spec.Tolerances) > 0 {
		return nil, fmt.Errorf("%w: tolerances apply to index nodes only", ErrInvalidModel)
	}
	policy, err := utility.ParseSubsistencePolicy(spec.SubsistencePolicy)
	if err != nil {
		return nil, err
	}
	inputs := make(map[string]utility.Source, len(spec.Inputs))
	for parm, in := range spec.Inputs {
		switch {
		case in.Node != "" && in.Constant != nil:
			return nil, fmt.Errorf("%w: input %q sets both node and constant", ErrInvalidModel, parm)
		case in.Node != "":
			nested, err := b.build(in.Node)
			if err != nil {
				return nil, err
			}
			inputs[parm] = nested
		case in.Constant != nil:
			inputs[parm] = utility.Constant(*in.Constant)
		default:
			return nil, fmt.Errorf("%w: input %q needs a node or a constant", ErrInvalidModel, parm)
		}
	}
	return b.reg.CreateFunction(spec.Variant, utility.FunctionConfig{
		Amplitude:    spec.Amplitude,
		DiminishRate: spec.DiminishRate,
		Subsistences: spec.Subsistences,
		Weights:      spec.Weights,
		Coefficients: spec.Coefficients,
		Inputs:       inputs,
		Policy:       policy,
	})
}
