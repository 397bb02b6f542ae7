package query

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chainlens/solgraph/internal/engines"
	"github.com/chainlens/solgraph/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/simpletoken"

func newFixtureService(t *testing.T) *Service {
	t.Helper()
	engines.RegisterBuiltins()
	return New(fixtureDir, WithEngine("source"))
}

func TestFunctionSourceResult(t *testing.T) {
	svc := newFixtureService(t)

	result, err := svc.FunctionSource(context.Background(), "SimpleToken", "transfer(address,uint256)")
	require.NoError(t, err)

	assert.Equal(t, "SimpleToken", result.Contract)
	assert.Equal(t, "transfer(address,uint256)", result.Function)
	assert.Contains(t, result.Source, "_performTransfer(msg.sender, to, amount);")
	assert.Equal(t, 21, result.Location.StartLine)
	assert.Equal(t, 24, result.Location.EndLine)
	assert.Equal(t, "source", result.Metadata.Engine)

	require.Len(t, result.Parameters, 2)
	assert.Equal(t, "to", result.Parameters[0].Name)
	assert.Equal(t, "address", result.Parameters[0].Type)

	require.Len(t, result.Calls, 1)
	assert.Equal(t, "SimpleToken", result.Calls[0].Contract)
	assert.Equal(t, "_performTransfer(address,address,uint256)", result.Calls[0].Signature)
}

func TestFunctionSourceLookupIsCanonicalized(t *testing.T) {
	svc := newFixtureService(t)

	result, err := svc.FunctionSource(context.Background(), "SimpleToken", "transfer(address to, uint256 amount)")
	require.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", result.Function)
}

func TestFunctionSourceNotFound(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	_, err := svc.FunctionSource(ctx, "SimpleToken", "burn(uint256)")
	var notFound *engine.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "SimpleToken", notFound.Contract)

	_, err = svc.FunctionSource(ctx, "NoSuchContract", "transfer(address,uint256)")
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "NoSuchContract", notFound.Contract)
	assert.Empty(t, notFound.Signature)
}

func TestFunctionSourceEmptyCollectionsMarshalAsArrays(t *testing.T) {
	svc := newFixtureService(t)

	result, err := svc.FunctionSource(context.Background(), "Ownable", "constructor()")
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parameter":[]`)
	assert.Contains(t, string(data), `"calls":[]`)
	assert.NotContains(t, string(data), "null")
}

func TestCallGraphRendering(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	graph, err := svc.CallGraph(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "source", graph.Metadata.Engine)

	require.Len(t, graph.Edges, 3)
	assert.Equal(t, Edge{
		Caller: "SimpleToken.transfer(address,uint256)",
		Callee: "SimpleToken._performTransfer(address,address,uint256)",
	}, graph.Edges[0])

	// An unresolved callee renders as the bare sentinel signature's
	// module-qualified best effort.
	assert.Equal(t, "IERC20.transfer(?,?)", graph.Edges[2].Callee)
}

func TestCallGraphFilterIsSubset(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	all, err := svc.CallGraph(ctx, "", "")
	require.NoError(t, err)

	filtered, err := svc.CallGraph(ctx, "SimpleToken", "")
	require.NoError(t, err)

	var want []Edge
	for _, e := range all.Edges {
		if strings.HasPrefix(e.Caller, "SimpleToken.") {
			want = append(want, e)
		}
	}
	assert.Equal(t, want, filtered.Edges)

	empty, err := svc.CallGraph(ctx, "MathLib", "")
	require.NoError(t, err)
	assert.Empty(t, empty.Edges, "a contract with no outgoing calls filters to an empty graph")
}

func TestCallGraphFunctionFilter(t *testing.T) {
	svc := newFixtureService(t)
	ctx := context.Background()

	graph, err := svc.CallGraph(ctx, "SimpleToken", "transfer(address,uint256)")
	require.NoError(t, err)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, Edge{
		Caller: "SimpleToken.transfer(address,uint256)",
		Callee: "SimpleToken._performTransfer(address,address,uint256)",
	}, graph.Edges[0])

	// A signature with parameter names matches its canonical form.
	loose, err := svc.CallGraph(ctx, "SimpleToken", "transfer(address to, uint256 amount)")
	require.NoError(t, err)
	assert.Equal(t, graph.Edges, loose.Edges)
}

func TestContracts(t *testing.T) {
	svc := newFixtureService(t)

	names, err := svc.Contracts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MathLib", "Ownable", "SimpleToken"}, names)
}

func TestUnknownEngine(t *testing.T) {
	engines.RegisterBuiltins()
	svc := New(fixtureDir, WithEngine("slither-native"))

	_, err := svc.FunctionSource(context.Background(), "SimpleToken", "transfer(address,uint256)")
	var unknownErr *engine.UnknownEngineError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "slither-native", unknownErr.Name)
	assert.Contains(t, unknownErr.Available, "solc")
	assert.Contains(t, unknownErr.Available, "source")
}

func TestDefaultEngineName(t *testing.T) {
	svc := New(fixtureDir)
	assert.Equal(t, DefaultEngine, svc.EngineName())

	// The zero value of a config field must not clobber the default.
	svc = New(fixtureDir, WithEngine(""))
	assert.Equal(t, DefaultEngine, svc.EngineName())
}

func TestGetFunctionSourceOneShot(t *testing.T) {
	engines.RegisterBuiltins()

	result, err := GetFunctionSource(context.Background(), fixtureDir, "MathLib", "add(uint256,uint256)", WithEngine("source"))
	require.NoError(t, err)
	assert.Equal(t, "MathLib", result.Contract)
	assert.Equal(t, "MathLib.sol", filepath.Base(result.Location.File))
}
