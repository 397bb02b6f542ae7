// Package cli provides the command-line interface for solgraph.
package cli

import (
	"log/slog"
	"os"

	"github.com/chainlens/solgraph/internal/cli/commands"
	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/chainlens/solgraph/internal/engines"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "solgraph",
		Short: "solgraph - engine-agnostic Solidity fact extraction",
		Long: `solgraph extracts structured facts from a Solidity project (function
source text, parameters, state-variable access, and call edges) and
serves them through one stable interface regardless of which analysis
engine produced them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := slog.New(slog.DiscardHandler)
			if cfg.Verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
				if path := config.GetConfigFileUsed(); path != "" {
					logger.Debug("using config file", "path", path)
				}
			}
			cfg.Logger = logger
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./solgraph.yaml, searched upward)")
	rootCmd.PersistentFlags().String("project", "", "Path to the Solidity project or a single .sol file")
	rootCmd.PersistentFlags().String("engine", "", "Analysis engine to use (default: solc)")
	rootCmd.PersistentFlags().String("solc", "", "Path to the solc binary (default: resolved from PATH)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (json|table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "table"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewCallGraphCommand())
	rootCmd.AddCommand(commands.NewContractsCommand())
	rootCmd.AddCommand(commands.NewEnginesCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))

	return rootCmd
}

// Execute registers the built-in engines and runs the root command.
func Execute() error {
	engines.RegisterBuiltins()
	return NewRootCmd().Execute()
}
