package commands

import (
	"fmt"
	"io"

	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/chainlens/solgraph/pkg/engine"
	"github.com/chainlens/solgraph/pkg/query"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewEnginesCommand creates the engines command.
func NewEnginesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List the registered analysis engines",
		Args:  cobra.NoArgs,
		RunE:  runEngines,
	}

	return cmd
}

type engineInfo struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

func runEngines(cmd *cobra.Command, _ []string) error {
	cfg := config.Current()

	names := engine.List()
	infos := make([]engineInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, engineInfo{Name: name, Default: name == query.DefaultEngine})
	}

	if cfg.Output == "table" {
		return renderEnginesTable(cmd.OutOrStdout(), infos)
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{"engines": infos})
}

func renderEnginesTable(w io.Writer, engines []engineInfo) error {
	if len(engines) == 0 {
		_, _ = fmt.Fprintln(w, "(no engines registered)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Engine", "Default"})
	for _, e := range engines {
		mark := ""
		if e.Default {
			mark = "*"
		}
		t.AppendRow(table.Row{e.Name, mark})
	}
	t.Render()
	return nil
}
