// Package query is the public entry point for extracting facts from an
// analyzed project. A Service wraps one engine instance per project,
// loads it exactly once, and answers function-source and call-graph
// queries from the immutable in-memory model. A query never triggers
// re-analysis.
package query

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/chainlens/solgraph/pkg/engine"
	"github.com/chainlens/solgraph/pkg/model"
)

// DefaultEngine is the engine used when none is configured.
const DefaultEngine = "solc"

// Metadata identifies the engine that produced a query result.
type Metadata struct {
	Engine string `json:"engine"`
}

// FunctionSource is the serializable result of a function lookup.
type FunctionSource struct {
	Contract   string         `json:"contract"`
	Function   string         `json:"function"`
	Source     string         `json:"source"`
	Location   model.Location `json:"location"`
	Parameters []model.Param  `json:"parameter"`
	Calls      []model.Call   `json:"calls"`
	Metadata   Metadata       `json:"metadata"`
}

// Edge is a rendered call-graph edge: both ends in Contract.signature
// form.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// CallGraph is the serializable result of a call-graph query. Edge
// order is fixed (contract, then function, then call), so repeated
// queries on an unchanged project are byte-identical.
type CallGraph struct {
	Edges    []Edge   `json:"edges"`
	Metadata Metadata `json:"metadata"`
}

// Option configures a Service.
type Option func(*Service)

// WithEngine selects the analysis backend by registry name.
func WithEngine(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.engineName = name
		}
	}
}

// WithSolcPath overrides the compiler binary for toolchain-backed
// engines.
func WithSolcPath(path string) Option {
	return func(s *Service) { s.engineOpts.SolcPath = path }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.engineOpts.Logger = logger }
}

// Service answers queries for one project through one engine. It is
// safe for concurrent use: the engine's model is immutable once loaded
// and the only guarded state is the engine construction latch.
type Service struct {
	projectPath string
	engineName  string
	engineOpts  engine.Options

	mu  sync.Mutex
	eng engine.Engine
}

// New creates a query service for projectPath. The engine is
// constructed and the project analyzed lazily, on first query.
func New(projectPath string, opts ...Option) *Service {
	s := &Service{
		projectPath: projectPath,
		engineName:  DefaultEngine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngineName returns the configured backend name.
func (s *Service) EngineName() string { return s.engineName }

// ensureEngine constructs the configured engine once. It fails with
// *engine.UnknownEngineError for unregistered names.
func (s *Service) ensureEngine() (engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng != nil {
		return s.eng, nil
	}
	eng, err := engine.New(s.engineName, s.projectPath, s.engineOpts)
	if err != nil {
		return nil, err
	}
	s.eng = eng
	return eng, nil
}

// FunctionSource looks up one function and returns its source text,
// location, parameters, and outgoing calls. It fails with
// *engine.NotFoundError when the contract or signature is absent, and
// propagates the engine's *engine.LoadError when analysis fails.
func (s *Service) FunctionSource(ctx context.Context, contract, signature string) (*FunctionSource, error) {
	eng, err := s.ensureEngine()
	if err != nil {
		return nil, err
	}
	fn, err := eng.Function(ctx, contract, signature)
	if err != nil {
		return nil, err
	}

	result := &FunctionSource{
		Contract:   contract,
		Function:   fn.Signature,
		Source:     fn.Source,
		Location:   fn.Location,
		Parameters: fn.Params,
		Calls:      fn.Calls,
		Metadata:   Metadata{Engine: s.engineName},
	}
	// Empty collections marshal as [] rather than null.
	if result.Parameters == nil {
		result.Parameters = []model.Param{}
	}
	if result.Calls == nil {
		result.Calls = []model.Call{}
	}
	return result, nil
}

// CallGraph returns every call edge in the project, or only edges whose
// caller matches the non-empty filters: callerContract restricts by
// caller contract, callerSignature by caller function. Filtering yields
// exactly the matching subset of the unfiltered graph.
func (s *Service) CallGraph(ctx context.Context, callerContract, callerSignature string) (*CallGraph, error) {
	eng, err := s.ensureEngine()
	if err != nil {
		return nil, err
	}
	edges, err := eng.CallGraph(ctx, callerContract, callerSignature)
	if err != nil {
		return nil, err
	}

	result := &CallGraph{
		Edges:    make([]Edge, 0, len(edges)),
		Metadata: Metadata{Engine: s.engineName},
	}
	for _, edge := range edges {
		result.Edges = append(result.Edges, Edge{
			Caller: edge.Caller.String(),
			Callee: edge.Callee.String(),
		})
	}
	return result, nil
}

// Contracts returns the names of every contract in the project, sorted.
func (s *Service) Contracts(ctx context.Context) ([]string, error) {
	eng, err := s.ensureEngine()
	if err != nil {
		return nil, err
	}
	project, err := eng.Load(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(project.Contracts()))
	for _, c := range project.Contracts() {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Project returns the loaded model for callers that need direct access
// to the full fact tree. The returned tree is read-only.
func (s *Service) Project(ctx context.Context) (*model.Project, error) {
	eng, err := s.ensureEngine()
	if err != nil {
		return nil, err
	}
	return eng.Load(ctx)
}

// GetFunctionSource is the one-shot convenience form of
// Service.FunctionSource for callers that need a single lookup.
func GetFunctionSource(ctx context.Context, projectPath, contract, signature string, opts ...Option) (*FunctionSource, error) {
	return New(projectPath, opts...).FunctionSource(ctx, contract, signature)
}
