package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
)

const (
	bannerStart = "Running the automatic migrations. Please, be patient and wait until the execution completes."
	bannerFixed = "Found and fixed the following deprecations:"
	bannerClean = "Cannot find any possible migrations"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(flags *globalFlags) *cobra.Command {
	var (
		project string
		dryRun  bool
		diff    bool
	)

	cmd := &cobra.Command{
		Use:   "migrate [paths...]",
		Short: "Rewrite operator chains in place",
		Long: `Rewrite instance-style RxJS and NgRx operator chains into pipeable form.

Files come from a tsconfig project (-p) and/or the given paths. Directories
are walked recursively. Every file is fixed repeatedly until no rule reports
anything or the pass limit is reached.`,
		Example: `  pipeshift migrate -p tsconfig.json
  pipeshift migrate src/app --dry-run --diff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, flags, project, args, dryRun, diff)
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "tsconfig.json whose files are migrated")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute fixes without writing files")
	cmd.Flags().BoolVar(&diff, "diff", false, "print a unified diff of every changed file")

	return cmd
}

func runMigrate(cmd *cobra.Command, flags *globalFlags, project string, paths []string, dryRun, diff bool) error {
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

	runner, err := sess.runner(dryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !flags.quiet {
		color.New(color.FgCyan).Fprintln(out, bannerStart)
	}

	report, runErr := runner.Run(ctx, files)
	if runErr != nil && !errors.Is(runErr, migrate.ErrNotConverged) {
		return runErr
	}

	if err := printOutcome(cmd, flags, report, diff); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("%w (after %d passes)", runErr, report.Passes)
	}

	return nil
}

func printOutcome(cmd *cobra.Command, flags *globalFlags, report *migrate.Report, diff bool) error {
	out := cmd.OutOrStdout()

	if len(report.Findings()) == 0 {
		if !flags.quiet {
			color.New(color.FgGreen).Fprintln(out, bannerClean)
		}
	} else {
		if !flags.quiet {
			color.New(color.FgYellow).Fprintln(out, bannerFixed)
		}

		if err := report.WriteFindings(out); err != nil {
			return err
		}
	}

	if diff {
		if err := report.WriteDiffs(out); err != nil {
			return err
		}
	}

	for _, f := range report.Skipped() {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "skipped %s: %d syntax errors\n", f.Path, f.ParseErrors)
	}

	if flags.quiet {
		return nil
	}

	fmt.Fprintln(out)

	return report.WriteSummary(out)
}
