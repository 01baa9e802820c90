package migrate

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"

	"github.com/Sumatoshi-tech/pipeshift/pkg/observability"
	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Finding is one violation that was fixed, positioned in the source of the
// pass that found it. Line and Column are 1-based.
type Finding struct {
	Rule    string `json:"rule"    yaml:"rule"`
	Message string `json:"message" yaml:"message"`
	File    string `json:"file"    yaml:"file"`
	Line    int    `json:"line"    yaml:"line"`
	Column  int    `json:"column"  yaml:"column"`
	Pass    int    `json:"pass"    yaml:"pass"`
}

func (f Finding) String() string {
	return fmt.Sprintf("WARNING: %s:%d:%d - %s", f.File, f.Line, f.Column, f.Message)
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path     string    `json:"path"     yaml:"path"`
	Findings []Finding `json:"findings" yaml:"findings"`
	Original []byte    `json:"-"        yaml:"-"`
	Fixed    []byte    `json:"-"        yaml:"-"`
	// ParseErrors is non-zero when the file was skipped because its input
	// did not parse cleanly.
	ParseErrors int `json:"parse_errors,omitempty" yaml:"parse_errors,omitempty"`
	// Rejected counts rule results discarded because the rewritten source no
	// longer parsed.
	Rejected int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	// Passes is the number of passes that analyzed the file.
	Passes int         `json:"passes" yaml:"passes"`
	Mode   fs.FileMode `json:"-"      yaml:"-"`
}

// Changed reports whether the fixed source differs from the original.
func (fr FileResult) Changed() bool {
	return !bytes.Equal(fr.Original, fr.Fixed)
}

// Skipped reports whether the file was left alone because it did not parse.
func (fr FileResult) Skipped() bool {
	return fr.ParseErrors > 0
}

// Status is the metric outcome of the file.
func (fr FileResult) Status() string {
	switch {
	case fr.Skipped():
		return observability.FileSkipped
	case fr.Changed():
		return observability.FileChanged
	default:
		return observability.FileClean
	}
}

type fileState struct {
	path        string
	original    []byte
	source      []byte
	findings    []Finding
	mode        fs.FileMode
	parseErrors int
	rejected    int
	passes      int
	dirty       bool
}

func newFileState(path string, src []byte, mode fs.FileMode) *fileState {
	return &fileState{path: path, original: src, source: src, mode: mode, dirty: true}
}

func (st *fileState) result() FileResult {
	return FileResult{
		Path:        st.path,
		Original:    st.original,
		Fixed:       st.source,
		Findings:    st.findings,
		ParseErrors: st.parseErrors,
		Rejected:    st.rejected,
		Passes:      st.passes,
		Mode:        st.mode,
	}
}

// fixFile runs every rule once over st and returns the number of
// violations found. The file stays dirty only if something was fixed.
func (r *Runner) fixFile(ctx context.Context, st *fileState, pass int) (int, error) {
	ctx, span := r.tracer.Start(ctx, "pipeshift.migrate.file")
	defer span.End()

	st.dirty = false
	st.passes = pass

	tree, err := r.parser.ParseFile(ctx, st.path, st.source)
	if err != nil {
		return 0, err
	}

	if tree.HasErrors() {
		st.parseErrors = tree.ErrorCount()
		r.logger.Warn("skipping file with syntax errors", "file", st.path, "errors", st.parseErrors)

		return 0, nil
	}

	total := 0

	for _, rule := range r.rules {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		name := rule.Metadata().Name

		violations := rule.Analyze(tree, typecheck.NewResolver(tree, r.typeOpts))
		if len(violations) == 0 {
			continue
		}

		kept, deferred := pipeable.SelectCompatible(violations)

		out, err := pipeable.Apply(tree.Source, pipeable.Edits(kept))
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", st.path, name, err)
		}

		next, err := r.parser.ParseFile(ctx, st.path, out)
		if err != nil {
			return 0, err
		}

		if next.HasErrors() {
			st.rejected++
			r.logger.Error("rewrite produced invalid syntax, discarding rule result",
				"file", st.path, "rule", name, "pass", pass)

			continue
		}

		r.metrics.RecordViolations(ctx, name, len(violations))

		if len(deferred) > 0 {
			r.logger.Debug("deferring conflicting violations", "file", st.path, "rule", name, "count", len(deferred))
		}

		for _, v := range kept {
			st.findings = append(st.findings, newFinding(tree, v, pass))
		}

		total += len(violations)
		tree = next
		st.dirty = true
	}

	st.source = tree.Source

	return total, nil
}

func newFinding(tree *tsast.Tree, v pipeable.Violation, pass int) Finding {
	line, col := tree.Position(v.Start)

	return Finding{
		Rule:    v.Rule,
		Message: v.Message,
		File:    tree.Name,
		Line:    line + 1,
		Column:  col + 1,
		Pass:    pass,
	}
}

// Analyze runs every rule once over src without applying any edit. A source
// with syntax errors yields the tree and no violations.
func (r *Runner) Analyze(ctx context.Context, name string, src []byte) (*tsast.Tree, []pipeable.Violation, error) {
	tree, err := r.parser.ParseFile(ctx, name, src)
	if err != nil {
		return nil, nil, err
	}

	if tree.HasErrors() {
		return tree, nil, nil
	}

	resolver := typecheck.NewResolver(tree, r.typeOpts)

	var out []pipeable.Violation
	for _, rule := range r.rules {
		out = append(out, rule.Analyze(tree, resolver)...)
	}

	return tree, out, nil
}
