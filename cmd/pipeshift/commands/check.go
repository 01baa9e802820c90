package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
)

// NewCheckCommand creates the check command. It converges every file in
// memory and reports what migrate would change.
func NewCheckCommand(flags *globalFlags) *cobra.Command {
	var (
		project string
		format  string
		diff    bool
	)

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Report pending migrations without writing",
		Long: `Report every migration that would be applied, without touching any file.

Exits with status 2 when at least one file would change, which makes check
usable as a CI gate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, project, args, format, diff)
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "tsconfig.json whose files are checked")
	cmd.Flags().StringVarP(&format, "format", "f", migrate.FormatText, "output format: text, json, yaml")
	cmd.Flags().BoolVar(&diff, "diff", false, "print a unified diff of every file that would change")

	return cmd
}

func runCheck(cmd *cobra.Command, flags *globalFlags, project string, paths []string, format string, diff bool) error {
	switch format {
	case migrate.FormatText, migrate.FormatJSON, migrate.FormatYAML:
	default:
		return fmt.Errorf("%w: %s", migrate.ErrUnknownFormat, format)
	}

	sess, err := openSession(flags, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := commandContext(cmd)

	files, err := sess.inputs(ctx, project, paths)
	if err != nil {
		return err
	}

	runner, err := sess.runner(true)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx, files)
	if runErr != nil && !errors.Is(runErr, migrate.ErrNotConverged) {
		return runErr
	}

	out := cmd.OutOrStdout()

	if err := report.Encode(out, format); err != nil {
		return err
	}

	if diff && format == migrate.FormatText {
		if err := report.WriteDiffs(out); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if len(report.Changed()) > 0 {
		return ErrPendingMigrations
	}

	return nil
}
