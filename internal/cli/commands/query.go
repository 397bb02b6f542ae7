package commands

import (
	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/spf13/cobra"
)

// QueryOptions holds the query command flags.
type QueryOptions struct {
	Contract string
	Function string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Extract one function's source, parameters, and calls",
		Long: `Query extracts a single function from the analyzed project: its exact
source text, file location, parameter list, and outgoing call edges,
emitted as JSON.

The function is addressed by contract name and canonical signature,
for example:

  solgraph query --project ./contracts --contract Token --function "transfer(address,uint256)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Contract, "contract", "", "Contract name (required)")
	cmd.Flags().StringVar(&opts.Function, "function", "", "Function signature, e.g. transfer(address,uint256) (required)")
	_ = cmd.MarkFlagRequired("contract")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions) error {
	cfg := config.Current()
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	result, err := svc.FunctionSource(cmd.Context(), opts.Contract, opts.Function)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
