// Package engines wires the built-in analysis backends into the
// process-wide engine registry.
package engines

import (
	"github.com/chainlens/solgraph/internal/engines/solc"
	"github.com/chainlens/solgraph/internal/engines/source"
	"github.com/chainlens/solgraph/pkg/engine"
)

// RegisterBuiltins registers every built-in engine. It is called at
// process start and by test setups; the registry is last-write-wins,
// so calling it more than once is safe.
func RegisterBuiltins() {
	engine.Register(solc.Name, solc.New)
	engine.Register(source.Name, source.New)
}
