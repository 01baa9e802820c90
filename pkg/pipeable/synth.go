package pipeable

import (
	"errors"
	"strings"

	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

// ErrNoChain is returned when root and tail do not form a chain.
var ErrNoChain = errors.New("no chain between root and tail")

// Separators used in composed calls.
const (
	argSeparator = ", "
	closeCompose = ")"
)

// Synthesis is the outcome of an edit synthesizer: the span to report and
// the edits, sorted by start offset.
type Synthesis struct {
	Edits []Edit
	Start int
	End   int
}

// SynthesizePipeable converts the chain from root to tail into
// root.<compose>(op1(...), op2(...)). The chain is walked iteratively.
func SynthesizePipeable(tree *tsast.Tree, cfg OperatorConfig, root, tail tsast.NodeID) (Synthesis, error) {
	src := tree.Source
	_, rootEnd := tree.Span(root)
	edits := []Edit{Insert(rootEnd, "."+cfg.ComposeName+"(")}
	spanStart := -1
	prev := root

	for prev != tail {
		member := tree.Parent(prev)
		call := tree.Parent(member)

		if tree.Kind(member) != tsast.KindMember || tree.Kind(call) != tsast.KindCall {
			return Synthesis{}, ErrNoChain
		}

		prop := tree.Field(member, "property")
		propStart, memberEnd := tree.Node(prop).Start, tree.Node(member).End

		dot := strings.LastIndexByte(string(src[rootEnd:propStart]), '.')
		if dot < 0 {
			return Synthesis{}, ErrNoChain
		}

		dot += rootEnd
		edits = append(edits, Replace(dot, memberEnd, tree.Text(prop)))

		if spanStart < 0 {
			spanStart = dot
		} else {
			_, prevEnd := tree.Span(prev)
			edits = append(edits, Insert(prevEnd, separatorBefore(src, prevEnd, dot)))
		}

		rootEnd = tree.Node(call).End
		prev = call
	}

	if spanStart < 0 {
		return Synthesis{}, ErrNoChain
	}

	_, tailEnd := tree.Span(tail)
	edits = append(edits, Insert(tailEnd, closeCompose))
	SortEdits(edits)

	return Synthesis{Start: spanStart, End: tailEnd, Edits: edits}, nil
}

// separatorBefore picks ", " for links written on one line and a bare comma
// when the original chain already breaks before the next dot.
func separatorBefore(src []byte, prevEnd, dot int) string {
	if prevEnd < dot && strings.TrimSpace(string(src[prevEnd:dot])) == "" {
		return ","
	}

	return argSeparator
}

// SynthesizeMerge merges X.pipe(a).pipe(b) into X.pipe(a, b). first is the
// inner compose call and second the compose call chained directly on it.
func SynthesizeMerge(tree *tsast.Tree, first, second tsast.NodeID) (Synthesis, error) {
	member := tree.Parent(first)
	if tree.Kind(member) != tsast.KindMember || tree.Parent(member) != second || tree.Field(member, "object") != first {
		return Synthesis{}, ErrNoChain
	}

	firstArgs := tree.Field(first, "arguments")
	secondArgs := tree.Field(second, "arguments")

	if firstArgs == tsast.NoNode || secondArgs == tsast.NoNode {
		return Synthesis{}, ErrNoChain
	}

	start, text := mergePoint(tree, firstArgs)
	end := tree.Node(secondArgs).Start + 1

	if len(argumentList(tree, secondArgs)) == 0 {
		text = ""
	}

	return Synthesis{
		Start: tree.Node(first).Start,
		End:   tree.Node(second).End,
		Edits: []Edit{Replace(start, end, text)},
	}, nil
}

// mergePoint returns where the merged argument list continues and the
// separator to write there. A trailing comma is kept and followed by a
// space; an empty list gets no separator.
func mergePoint(tree *tsast.Tree, args tsast.NodeID) (int, string) {
	src := tree.Source

	list := argumentList(tree, args)
	if len(list) == 0 {
		return tree.Node(args).Start + 1, ""
	}

	end := tree.Node(list[len(list)-1]).End
	p := end

	for p < len(src) && isSpace(src[p]) {
		p++
	}

	if p < len(src) && src[p] == ',' {
		return p + 1, " "
	}

	return end, argSeparator
}

// argumentList returns the argument expressions of an arguments node,
// without comments.
func argumentList(tree *tsast.Tree, args tsast.NodeID) []tsast.NodeID {
	var out []tsast.NodeID

	for _, c := range tree.Children(args) {
		if tree.Kind(c) != tsast.KindComment {
			out = append(out, c)
		}
	}

	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
