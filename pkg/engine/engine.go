// Package engine defines the capability contract every analysis backend
// must satisfy, the process-wide registry used to construct backends by
// name, and the shared lazy-loading base embedded by adapters.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chainlens/solgraph/pkg/model"
)

// Options carries engine construction parameters common to all backends.
// Backends ignore options that do not apply to them.
type Options struct {
	// SolcPath overrides the compiler binary resolved from PATH.
	SolcPath string

	// Logger receives debug output. Nil uses a discard logger.
	Logger *slog.Logger
}

// Engine is the capability contract implemented by every analysis
// backend. An engine instance is bound to one project path at
// construction time.
//
// Load is idempotent: the first successful call runs the analysis and
// caches the resulting model; later calls return the cached model. A
// failed load leaves the engine unloaded rather than half-populated.
// The accessors trigger a load when none has happened yet.
type Engine interface {
	// Name returns the registered engine name.
	Name() string

	// Load analyzes the project and returns the populated model.
	// It fails with *LoadError, distinguishing a missing toolchain
	// from an invalid or uncompilable project.
	Load(ctx context.Context) (*model.Project, error)

	// Contract returns a contract by name, failing with *NotFoundError
	// when absent.
	Contract(ctx context.Context, name string) (*model.Contract, error)

	// Function returns a function by contract name and signature. The
	// signature is canonicalized before lookup. Fails with
	// *NotFoundError when the contract or signature is absent.
	Function(ctx context.Context, contract, signature string) (*model.Function, error)

	// CallGraph returns every call edge in the project. A non-empty
	// callerContract restricts the result to edges whose caller belongs
	// to that contract; a non-empty callerSignature further restricts it
	// to one caller function (the signature is canonicalized before
	// matching). The slice is rebuilt from the immutable model on each
	// call, in a fixed order (contract, then function, then call), so
	// repeated calls yield identical sequences.
	CallGraph(ctx context.Context, callerContract, callerSignature string) ([]model.Edge, error)
}

// Factory constructs an engine bound to projectPath.
type Factory func(projectPath string, opts Options) Engine

// Base provides the load-once/read-many behavior shared by backend
// adapters. Concrete engines embed Base and set Analyze to their
// native analysis routine; Base supplies Load, Contract, Function,
// and CallGraph on top of it.
type Base struct {
	// Analyze runs the backend's native analysis and returns the
	// normalized model. Set by the embedding engine.
	Analyze func(ctx context.Context) (*model.Project, error)

	mu      sync.Mutex
	project *model.Project
}

// Load returns the cached model, running Analyze on first use.
func (b *Base) Load(ctx context.Context) (*model.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.project != nil {
		return b.project, nil
	}
	project, err := b.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	b.project = project
	return project, nil
}

// Contract implements the Engine lookup accessor.
func (b *Base) Contract(ctx context.Context, name string) (*model.Contract, error) {
	project, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	contract, ok := project.Contract(name)
	if !ok {
		return nil, &NotFoundError{Contract: name}
	}
	return contract, nil
}

// Function implements the Engine lookup accessor.
func (b *Base) Function(ctx context.Context, contract, signature string) (*model.Function, error) {
	c, err := b.Contract(ctx, contract)
	if err != nil {
		return nil, err
	}
	fn, ok := c.Function(model.Canonical(signature))
	if !ok {
		return nil, &NotFoundError{Contract: contract, Signature: signature}
	}
	return fn, nil
}

// CallGraph implements the Engine call-graph accessor.
func (b *Base) CallGraph(ctx context.Context, callerContract, callerSignature string) ([]model.Edge, error) {
	project, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	if callerSignature != "" {
		callerSignature = model.Canonical(callerSignature)
	}
	var edges []model.Edge
	for _, contract := range project.Contracts() {
		if callerContract != "" && contract.Name != callerContract {
			continue
		}
		for _, fn := range contract.Functions() {
			if callerSignature != "" && fn.Signature != callerSignature {
				continue
			}
			caller := model.Ref{Contract: contract.Name, Signature: fn.Signature}
			for _, call := range fn.Calls {
				edges = append(edges, model.Edge{
					Caller: caller,
					Callee: model.Ref{Contract: call.Contract, Signature: call.Signature},
				})
			}
		}
	}
	return edges, nil
}
