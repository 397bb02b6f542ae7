package commands

import (
	"fmt"
	"io"

	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewContractsCommand creates the contracts command.
func NewContractsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List the contracts in the project",
		Long: `Contracts lists every contract, library, and interface discovered in
the project, with its source file and function count.`,
		Args: cobra.NoArgs,
		RunE: runContracts,
	}

	return cmd
}

// contractInfo is one row of the contracts listing.
type contractInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Functions int    `json:"functions"`
}

type contractsOutput struct {
	Contracts []contractInfo `json:"contracts"`
	Metadata  struct {
		Engine string `json:"engine"`
	} `json:"metadata"`
}

func runContracts(cmd *cobra.Command, _ []string) error {
	cfg := config.Current()
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	project, err := svc.Project(cmd.Context())
	if err != nil {
		return err
	}

	names, err := svc.Contracts(cmd.Context())
	if err != nil {
		return err
	}

	out := contractsOutput{Contracts: make([]contractInfo, 0, len(names))}
	out.Metadata.Engine = svc.EngineName()
	for _, name := range names {
		c, ok := project.Contract(name)
		if !ok {
			continue
		}
		out.Contracts = append(out.Contracts, contractInfo{
			Name:      c.Name,
			Kind:      c.Kind,
			File:      c.File,
			Functions: len(c.Functions()),
		})
	}

	if cfg.Output == "table" {
		return renderContractsTable(cmd.OutOrStdout(), out.Contracts)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func renderContractsTable(w io.Writer, contracts []contractInfo) error {
	if len(contracts) == 0 {
		_, _ = fmt.Fprintln(w, "(0 contracts)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Contract", "Kind", "File", "Functions"})
	for _, c := range contracts {
		t.AppendRow(table.Row{c.Name, c.Kind, c.File, c.Functions})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d contracts)\n", len(contracts))
	return nil
}
