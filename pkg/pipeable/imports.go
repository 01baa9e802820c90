package pipeable

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

// ImportPatch describes the named-import edit for one module.
type ImportPatch struct {
	Missing   []string
	Edit      Edit
	Statement tsast.NodeID
}

// Message returns the diagnostic for the patch.
func (p ImportPatch) Message(module string) string {
	return fmt.Sprintf("should import %s from %s", strings.Join(p.Missing, ", "), module)
}

// PatchImports finds the first top-level import from cfg.Module that has a
// named import list and appends the configured operators it lacks. Presence
// is a substring test on the raw list, so aliased imports count as present.
// It reports false when the module is not imported or nothing is missing.
func PatchImports(tree *tsast.Tree, cfg OperatorConfig) (ImportPatch, bool) {
	for _, stmt := range tree.Children(tree.Root()) {
		if tree.Kind(stmt) != tsast.KindImportStatement {
			continue
		}

		if !strings.HasPrefix(moduleSpecifier(tree, stmt), cfg.Module) {
			continue
		}

		named := tree.FirstChildOfKind(tree.FirstChildOfKind(stmt, tsast.KindImportClause), tsast.KindNamedImports)
		if named == tsast.NoNode {
			continue
		}

		return patchNamedImports(tree, cfg, stmt, named)
	}

	return ImportPatch{}, false
}

func patchNamedImports(tree *tsast.Tree, cfg OperatorConfig, stmt, named tsast.NodeID) (ImportPatch, bool) {
	text := tree.Text(named)
	inner := strings.TrimSpace(text[1 : len(text)-1])

	var missing []string

	for _, op := range cfg.Operators() {
		if !strings.Contains(inner, op) {
			missing = append(missing, op)
		}
	}

	if len(missing) == 0 {
		return ImportPatch{}, false
	}

	list := strings.Join(missing, ", ")

	var replacement string

	switch {
	case inner == "":
		replacement = "{ " + list + " }"
	case strings.HasSuffix(inner, ","):
		replacement = "{ " + inner + " " + list + " }"
	default:
		replacement = "{ " + inner + ", " + list + " }"
	}

	start, end := tree.Span(named)

	return ImportPatch{
		Statement: stmt,
		Missing:   missing,
		Edit:      Replace(start, end, replacement),
	}, true
}

// moduleSpecifier returns the unquoted source of an import statement.
func moduleSpecifier(tree *tsast.Tree, stmt tsast.NodeID) string {
	src := tree.Field(stmt, "source")
	if src == tsast.NoNode {
		src = tree.FirstChildOfKind(stmt, tsast.KindString)
	}

	text := tree.Text(src)
	if len(text) < 2 {
		return ""
	}

	return text[1 : len(text)-1]
}
