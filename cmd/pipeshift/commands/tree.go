package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pipeshift/pkg/migrate"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

// ErrUnsupportedFile is returned for files no grammar handles.
var ErrUnsupportedFile = errors.New("unsupported file type")

// NewTreeCommand prints the syntax tree of a file, which helps when a chain
// is not recognized.
func NewTreeCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the syntax tree of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", migrate.FormatYAML, "output format: yaml, json")

	return cmd
}

func runTree(cmd *cobra.Command, path, format string) error {
	if _, ok := tsast.LanguageFor(path); !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	tree, err := tsast.NewParser().ParseFile(commandContext(cmd), path, src)
	if err != nil {
		return err
	}

	dump := tree.Dump(tree.Root())
	out := cmd.OutOrStdout()

	switch format {
	case migrate.FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(dump)
	case migrate.FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)

		if err := enc.Encode(dump); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", migrate.ErrUnknownFormat, format)
	}
}
