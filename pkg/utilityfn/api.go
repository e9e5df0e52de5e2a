package utilityfn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"utilityfn/internal/model"
	"utilityfn/internal/modelconfig"
	"utilityfn/internal/storage"
	"utilityfn/internal/utility"
)

const (
	defaultDBPath  = "utilityfn.db"
	defaultWorkers = 4
)

type Options struct {
	StoreKind string
	DBPath    string
	// MaxDepth bounds nested evaluation in loaded models. Zero uses utility.DefaultMaxDepth.
	MaxDepth int
	// Workers bounds concurrent sweep evaluations.
	Workers int
	Logger  *slog.Logger
}

type Client struct {
	store    storage.Store
	logger   *slog.Logger
	maxDepth int
	workers  int
	now      func() time.Time
}

// Model is a built node tree ready for evaluation.
type Model struct {
	Name     string
	RootName string
	Registry *Registry
	Nodes    map[string]Source
	Root     Source
}

// Result is one recorded evaluation. Infeasible reports a NaN sentinel under
// the NaN subsistence policy.
type Result struct {
	ID         string
	Value      float64
	Infeasible bool
}

type SweepPoint struct {
	Args   Args
	Result Result
	Err    error
}

func WithLogger(logger *slog.Logger) RegistryOption { return utility.WithLogger(logger) }

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:    store,
		logger:   logger,
		maxDepth: opts.MaxDepth,
		workers:  workers,
		now:      time.Now,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// LoadModel reads a YAML or TOML model file and builds its node tree on a
// fresh registry.
func (c *Client) LoadModel(path string) (*Model, error) {
	spec, err := modelconfig.Load(path)
	if err != nil {
		return nil, err
	}
	reg := utility.NewRegistry(utility.WithMaxDepth(c.maxDepth), utility.WithLogger(c.logger))
	built, err := spec.Build(reg)
	if err != nil {
		return nil, fmt.Errorf("build model %s: %w", spec.Name, err)
	}
	c.logger.Info("model loaded", "model", spec.Name, "root", built.RootName, "nodes", len(built.Nodes))
	return &Model{
		Name:     spec.Name,
		RootName: built.RootName,
		Registry: built.Registry,
		Nodes:    built.Nodes,
		Root:     built.Root,
	}, nil
}

// NewModel wraps a node built in code so it can be evaluated and recorded.
func NewModel(name, rootName string, root Source) *Model {
	return &Model{
		Name:     name,
		RootName: rootName,
		Nodes:    map[string]Source{rootName: root},
		Root:     root,
	}
}

func (c *Client) Evaluate(ctx context.Context, m *Model, args Args) (Result, error) {
	value, err := m.Root.Evaluate(args)
	return c.record(ctx, m, model.EvaluationScore, nil, args, value, err)
}

// Derivative differentiates the model root along path.
func (c *Client) Derivative(ctx context.Context, m *Model, path []string, args Args) (Result, error) {
	root, ok := m.Root.(Differentiable)
	if !ok {
		return Result{}, fmt.Errorf("%w: root %s is not differentiable", ErrInvalidDerivativePath, m.RootName)
	}
	value, err := root.Derivative(path, args)
	return c.record(ctx, m, model.EvaluationDerivative, path, args, value, err)
}

// Sweep evaluates the model at every point concurrently. Per-point evaluation
// failures are reported on the point; only cancellation and store failures
// abort the sweep.
func (c *Client) Sweep(ctx context.Context, m *Model, points []Args) ([]SweepPoint, error) {
	out := make([]SweepPoint, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, args := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := c.Evaluate(gctx, m, args)
			var storeErr *recordError
			if errors.As(err, &storeErr) {
				return err
			}
			out[i] = SweepPoint{Args: args, Result: result, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// History lists recorded results, newest first. An empty modelName lists all.
func (c *Client) History(ctx context.Context, modelName string, limit int) ([]Record, error) {
	return c.store.ListEvaluations(ctx, modelName, limit)
}

func (c *Client) ClearHistory(ctx context.Context, modelName string) error {
	return c.store.DeleteEvaluations(ctx, modelName)
}

type recordError struct {
	err error
}

func (e *recordError) Error() string { return "record evaluation: " + e.err.Error() }

func (e *recordError) Unwrap() error { return e.err }

func (c *Client) record(ctx context.Context, m *Model, kind model.EvaluationKind, path []string, args Args, value float64, evalErr error) (Result, error) {
	rec := model.EvaluationRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:         uuid.NewString(),
		Model:      m.Name,
		Root:       m.RootName,
		Kind:       kind,
		Path:       slices.Clone(path),
		Args:       maps.Clone(args),
		RecordedAt: c.now().UTC(),
	}
	if keyed, ok := m.Root.(interface{ Key() uint64 }); ok {
		rec.NodeKey = keyed.Key()
	}

	result := Result{ID: rec.ID}
	switch {
	case evalErr != nil:
		rec.Error = evalErr.Error()
	case math.IsNaN(value):
		rec.Infeasible = true
		result.Value = math.NaN()
		result.Infeasible = true
	default:
		rec.Value = value
		result.Value = value
	}

	if err := c.store.SaveEvaluation(ctx, rec); err != nil {
		return Result{}, &recordError{err: err}
	}
	c.logger.Debug("evaluation recorded",
		"id", rec.ID,
		"model", rec.Model,
		"kind", string(kind),
		"path", path,
		"value", result.Value,
		"error", rec.Error,
	)
	if evalErr != nil {
		return result, evalErr
	}
	return result, nil
}
