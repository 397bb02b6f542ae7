// Package commands implements the solgraph subcommands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chainlens/solgraph/internal/cli/config"
	"github.com/chainlens/solgraph/pkg/query"
)

// newService builds a query service from the loaded configuration.
func newService(cfg *config.Config) (*query.Service, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("no project specified: use --project or set it in solgraph.yaml")
	}
	return query.New(cfg.Project,
		query.WithEngine(cfg.Engine),
		query.WithSolcPath(cfg.Solc),
		query.WithLogger(cfg.Logger),
	), nil
}

// writeJSON marshals v fully before writing so a marshal failure never
// leaves partial JSON on the output stream.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
