package commands

import (
	"fmt"
	"io"

	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/chainlens/solgraph/pkg/query"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewCallGraphCommand creates the call-graph command.
func NewCallGraphCommand() *cobra.Command {
	var contract string
	var function string

	cmd := &cobra.Command{
		Use:   "call-graph",
		Short: "Emit the project's call edges",
		Long: `Call-graph emits every call edge discovered in the project as
caller/callee pairs in Contract.signature form. With --contract the
output is restricted to edges whose caller belongs to that contract;
--function narrows it further to one caller signature.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCallGraph(cmd, contract, function)
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "Only edges whose caller belongs to this contract")
	cmd.Flags().StringVar(&function, "function", "", "Only edges whose caller has this signature, e.g. 'transfer(address,uint256)'")

	return cmd
}

func runCallGraph(cmd *cobra.Command, contract, function string) error {
	cfg := config.Current()
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	graph, err := svc.CallGraph(cmd.Context(), contract, function)
	if err != nil {
		return err
	}

	if cfg.Output == "table" {
		return renderEdgeTable(cmd.OutOrStdout(), graph)
	}
	return writeJSON(cmd.OutOrStdout(), graph)
}

func renderEdgeTable(w io.Writer, graph *query.CallGraph) error {
	if len(graph.Edges) == 0 {
		_, _ = fmt.Fprintln(w, "(0 edges)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Caller", "Callee"})
	for _, edge := range graph.Edges {
		t.AppendRow(table.Row{edge.Caller, edge.Callee})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d edges)\n", len(graph.Edges))
	return nil
}
