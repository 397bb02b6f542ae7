package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/chainlens/solgraph/internal/engines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../../testdata/simpletoken"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	engines.RegisterBuiltins()
	config.Reset()
	t.Cleanup(config.Reset)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryCommandJSON(t *testing.T) {
	out, err := runCLI(t,
		"query",
		"--project", fixtureDir,
		"--engine", "source",
		"--contract", "SimpleToken",
		"--function", "transfer(address,uint256)",
	)
	require.NoError(t, err)

	var result struct {
		Contract string `json:"contract"`
		Function string `json:"function"`
		Source   string `json:"source"`
		Location struct {
			File      string `json:"file"`
			StartLine int    `json:"start_line"`
			EndLine   int    `json:"end_line"`
		} `json:"location"`
		Parameters []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"parameter"`
		Calls []struct {
			Module   string `json:"module"`
			Function string `json:"function"`
		} `json:"calls"`
		Metadata struct {
			Engine string `json:"engine"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, "SimpleToken", result.Contract)
	assert.Equal(t, "transfer(address,uint256)", result.Function)
	assert.Contains(t, result.Source, "_performTransfer")
	assert.Equal(t, 21, result.Location.StartLine)
	assert.Equal(t, 24, result.Location.EndLine)
	assert.Equal(t, "source", result.Metadata.Engine)

	require.Len(t, result.Parameters, 2)
	assert.Equal(t, "to", result.Parameters[0].Name)

	require.Len(t, result.Calls, 1)
	assert.Equal(t, "SimpleToken", result.Calls[0].Module)
	assert.Equal(t, "_performTransfer(address,address,uint256)", result.Calls[0].Function)
}

func TestQueryCommandNotFound(t *testing.T) {
	_, err := runCLI(t,
		"query",
		"--project", fixtureDir,
		"--engine", "source",
		"--contract", "SimpleToken",
		"--function", "burn(uint256)",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQueryCommandRequiresProject(t *testing.T) {
	_, err := runCLI(t,
		"query",
		"--engine", "source",
		"--contract", "SimpleToken",
		"--function", "transfer(address,uint256)",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project specified")
}

func TestQueryCommandUnknownEngine(t *testing.T) {
	_, err := runCLI(t,
		"query",
		"--project", fixtureDir,
		"--engine", "mythril",
		"--contract", "SimpleToken",
		"--function", "transfer(address,uint256)",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown engine "mythril"`)
	assert.Contains(t, err.Error(), "Available engines")
}

func TestCallGraphCommand(t *testing.T) {
	out, err := runCLI(t,
		"call-graph",
		"--project", fixtureDir,
		"--engine", "source",
	)
	require.NoError(t, err)

	var graph struct {
		Edges []struct {
			Caller string `json:"caller"`
			Callee string `json:"callee"`
		} `json:"edges"`
		Metadata struct {
			Engine string `json:"engine"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))

	require.Len(t, graph.Edges, 3)
	assert.Equal(t, "SimpleToken.transfer(address,uint256)", graph.Edges[0].Caller)
	assert.Equal(t, "SimpleToken._performTransfer(address,address,uint256)", graph.Edges[0].Callee)
	assert.Equal(t, "source", graph.Metadata.Engine)
}

func TestCallGraphCommandFiltered(t *testing.T) {
	out, err := runCLI(t,
		"call-graph",
		"--project", fixtureDir,
		"--engine", "source",
		"--contract", "MathLib",
	)
	require.NoError(t, err)

	var graph struct {
		Edges []any `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	assert.Empty(t, graph.Edges)
}

func TestCallGraphCommandFunctionFilter(t *testing.T) {
	out, err := runCLI(t,
		"call-graph",
		"--project", fixtureDir,
		"--engine", "source",
		"--contract", "SimpleToken",
		"--function", "mint(address,uint256)",
	)
	require.NoError(t, err)

	var graph struct {
		Edges []struct {
			Caller string `json:"caller"`
			Callee string `json:"callee"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "SimpleToken.mint(address,uint256)", graph.Edges[0].Caller)
	assert.Equal(t, "MathLib.add(uint256,uint256)", graph.Edges[0].Callee)
}

func TestCallGraphCommandTable(t *testing.T) {
	out, err := runCLI(t,
		"call-graph",
		"--project", fixtureDir,
		"--engine", "source",
		"--output", "table",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "SimpleToken.transfer(address,uint256)")
	assert.Contains(t, out, "(3 edges)")
}

func TestContractsCommand(t *testing.T) {
	out, err := runCLI(t,
		"contracts",
		"--project", fixtureDir,
		"--engine", "source",
	)
	require.NoError(t, err)

	var result struct {
		Contracts []struct {
			Name      string `json:"name"`
			Kind      string `json:"kind"`
			Functions int    `json:"functions"`
		} `json:"contracts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	require.Len(t, result.Contracts, 3)
	assert.Equal(t, "MathLib", result.Contracts[0].Name)
	assert.Equal(t, "library", result.Contracts[0].Kind)
	assert.Equal(t, 2, result.Contracts[0].Functions)
	assert.Equal(t, "SimpleToken", result.Contracts[2].Name)
	assert.Equal(t, 6, result.Contracts[2].Functions)
}

func TestEnginesCommand(t *testing.T) {
	out, err := runCLI(t, "engines")
	require.NoError(t, err)

	var result struct {
		Engines []struct {
			Name    string `json:"name"`
			Default bool   `json:"default"`
		} `json:"engines"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	names := map[string]bool{}
	for _, e := range result.Engines {
		names[e.Name] = e.Default
	}
	assert.True(t, names["solc"], "solc is the default engine")
	_, hasSource := names["source"]
	assert.True(t, hasSource)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "solgraph")
	assert.Contains(t, out, "build date")
}
