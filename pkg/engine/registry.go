package engine

import (
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an engine factory to the process-wide registry.
// Registration is an explicit call: built-in engines are registered by
// internal/engines.RegisterBuiltins at process start, never as a side
// effect of merely importing a package. Last write wins, so
// re-registering an existing name replaces the prior factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup retrieves an engine factory by name.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New constructs the named engine for projectPath. It fails with
// *UnknownEngineError, listing the registered engines, when the name
// has no registration.
func New(name, projectPath string, opts Options) (Engine, error) {
	factory, ok := Lookup(name)
	if !ok {
		return nil, &UnknownEngineError{
			Name:      name,
			Available: List(),
		}
	}
	return factory(projectPath, opts), nil
}

// List returns all registered engine names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether an engine name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
