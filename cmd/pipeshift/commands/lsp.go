package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/pkg/lsp"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/version"
)

// NewLSPCommand starts the language server on stdio.
func NewLSPCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Start a Language Server Protocol server on stdio.

Open TypeScript documents get a warning per pending migration, a quick fix
per warning and a fix-all action that converges the whole document.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// stdout carries the protocol.
			sess, err := openSession(flags, observability.ModeLSP, os.Stderr)
			if err != nil {
				return err
			}
			defer sess.close()

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			runner, err := sess.runner(true)
			if err != nil {
				return err
			}

			srv := lsp.NewServer(lsp.Options{
				Logger:  sess.providers.Logger,
				Tracer:  sess.providers.Tracer,
				Metrics: red,
				Runner:  runner,
				Version: version.Version,
			})

			return srv.Run()
		},
	}
}
