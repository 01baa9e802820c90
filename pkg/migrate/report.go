package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report summarizes a run.
type Report struct {
	Files     []FileResult  `json:"files"     yaml:"files"`
	Passes    int           `json:"passes"    yaml:"passes"`
	Duration  time.Duration `json:"duration"  yaml:"duration"`
	Converged bool          `json:"converged" yaml:"converged"`
	DryRun    bool          `json:"dry_run"   yaml:"dry_run"`
}

// Findings returns every finding in file order.
func (rep *Report) Findings() []Finding {
	var out []Finding
	for _, f := range rep.Files {
		out = append(out, f.Findings...)
	}

	return out
}

// Changed returns the files whose source was rewritten.
func (rep *Report) Changed() []FileResult {
	var out []FileResult

	for _, f := range rep.Files {
		if f.Changed() {
			out = append(out, f)
		}
	}

	return out
}

// Skipped returns the files left alone because they did not parse.
func (rep *Report) Skipped() []FileResult {
	var out []FileResult

	for _, f := range rep.Files {
		if f.Skipped() {
			out = append(out, f)
		}
	}

	return out
}

// WriteFindings prints one WARNING line per finding.
func (rep *Report) WriteFindings(w io.Writer) error {
	for _, f := range rep.Findings() {
		if _, err := fmt.Fprintln(w, f.String()); err != nil {
			return fmt.Errorf("write findings: %w", err)
		}
	}

	return nil
}

// WriteSummary renders per-rule counts and run totals as a table.
func (rep *Report) WriteSummary(w io.Writer) error {
	counts := make(map[string]int)

	var order []string

	for _, f := range rep.Findings() {
		if _, ok := counts[f.Rule]; !ok {
			order = append(order, f.Rule)
		}

		counts[f.Rule]++
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.AppendHeader(table.Row{"Rule", "Fixed"})

	for _, rule := range order {
		tbl.AppendRow(table.Row{rule, humanize.Comma(int64(counts[rule]))})
	}

	var bytesChanged int64
	for _, f := range rep.Changed() {
		bytesChanged += int64(len(f.Fixed))
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%s of %s files changed (%s), %s",
			humanize.Comma(int64(len(rep.Changed()))),
			humanize.Comma(int64(len(rep.Files))),
			humanize.Bytes(uint64(bytesChanged)),
			passesLabel(rep.Passes)),
		rep.Duration.Round(time.Millisecond).String(),
	})
	tbl.Render()

	return nil
}

func passesLabel(n int) string {
	if n == 1 {
		return "1 pass"
	}

	return strconv.Itoa(n) + " passes"
}

// Encode writes the report in the given format.
func (rep *Report) Encode(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return nil
	case FormatText, "":
		return rep.WriteFindings(w)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// WriteDiffs prints a unified diff for every changed file.
func (rep *Report) WriteDiffs(w io.Writer) error {
	for _, f := range rep.Changed() {
		if _, err := io.WriteString(w, UnifiedDiff(f.Path, f.Original, f.Fixed)); err != nil {
			return fmt.Errorf("write diff: %w", err)
		}
	}

	return nil
}

func (r *Runner) write(ctx context.Context, report *Report) error {
	for _, f := range report.Changed() {
		if err := ctx.Err(); err != nil {
			return err
		}

		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}

		if err := os.WriteFile(f.Path, f.Fixed, mode); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}

		r.logger.Debug("file written", "file", f.Path, "size", humanize.Bytes(uint64(len(f.Fixed))))
	}

	return nil
}
