package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
)

// NewRulesCommand lists the registered rules.
func NewRulesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the available rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(flags, observability.ModeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			enabled := make(map[string]bool, len(sess.selected))
			for _, r := range sess.selected {
				enabled[r.Metadata().Name] = true
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Rule", "Module", "Type", "Enabled", "Description"})

			for _, r := range sess.registry.All() {
				meta := r.Metadata()
				tbl.AppendRow(table.Row{meta.Name, meta.Module, meta.Type, yesNo(enabled[meta.Name]), meta.Description})
			}

			tbl.Render()

			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
