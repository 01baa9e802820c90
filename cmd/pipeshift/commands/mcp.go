package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/pkg/mcp"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes pipeshift as tools that AI agents can discover and invoke:
  - pipeshift_check: Report pending migrations in a TypeScript snippet
  - pipeshift_fix: Migrate a TypeScript snippet and return the result
  - pipeshift_rules: List the available rules`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.logJSON = true

			sess, err := openSession(flags, observability.ModeMCP, os.Stderr)
			if err != nil {
				return err
			}
			defer sess.close()

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:      sess.providers.Logger,
				Metrics:     red,
				Tracer:      sess.providers.Tracer,
				Registry:    sess.registry,
				TypeOptions: sess.cfg.TypeOptions(),
				MaxPasses:   sess.cfg.Passes.Max,
				Version:     version.Version,
			})

			return srv.Run(commandContext(cmd))
		},
	}
}
