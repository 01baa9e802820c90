package pipeable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

type fixture struct {
	tree       *tsast.Tree
	classifier *pipeable.Classifier
	pred       *pipeable.Predicate
	walker     *pipeable.Walker
	cfg        pipeable.OperatorConfig
}

func newFixture(t *testing.T, src string, cfg pipeable.OperatorConfig) *fixture {
	t.Helper()

	tree, err := tsast.NewParser().ParseFile(context.Background(), "sample.ts", []byte(src))
	require.NoError(t, err)
	require.False(t, tree.HasErrors())

	return newFixtureWithOracle(tree, typecheck.NewResolver(tree, typecheck.DefaultOptions()), cfg)
}

func newFixtureWithOracle(tree *tsast.Tree, oracle typecheck.Oracle, cfg pipeable.OperatorConfig) *fixture {
	classifier := pipeable.NewClassifier(oracle, nil)
	pred := pipeable.NewPredicate(tree, cfg, classifier)

	return &fixture{
		tree:       tree,
		cfg:        cfg,
		classifier: classifier,
		pred:       pred,
		walker:     pipeable.NewWalker(tree, pred, classifier),
	}
}

func (f *fixture) call(t *testing.T, text string) tsast.NodeID {
	t.Helper()

	found := tsast.NoNode

	f.tree.Walk(f.tree.Root(), func(id tsast.NodeID) bool {
		if found == tsast.NoNode && f.tree.Kind(id) == tsast.KindCall && f.tree.Text(id) == text {
			found = id
		}

		return found == tsast.NoNode
	})

	require.NotEqual(t, tsast.NoNode, found, "call %q not found", text)

	return found
}

// convertAll applies the pipeable conversion to every chain in the file.
func (f *fixture) convertAll(t *testing.T) string {
	t.Helper()

	var edits []pipeable.Edit

	f.tree.Walk(f.tree.Root(), func(id tsast.NodeID) bool {
		if !f.walker.IsFirstLink(id) {
			return true
		}

		root := f.pred.Receiver(id)
		syn, err := pipeable.SynthesizePipeable(f.tree, f.cfg, root, f.walker.Climb(root))
		require.NoError(t, err)

		edits = append(edits, syn.Edits...)

		return true
	})

	out, err := pipeable.Apply(f.tree.Source, edits)
	require.NoError(t, err)

	return string(out)
}

// textOracle types nodes by their source text.
type textOracle struct {
	tree    *tsast.Tree
	types   map[string]string
	returns map[string]string
}

func (o textOracle) TypeOf(id tsast.NodeID) typecheck.Type {
	if o.tree.Kind(id) == tsast.KindCall {
		return o.ReturnTypeOf(id)
	}

	return typecheck.Type{Name: o.types[o.tree.Text(id)]}
}

func (o textOracle) ReturnTypeOf(id tsast.NodeID) typecheck.Type {
	return typecheck.Type{Name: o.returns[o.tree.Text(id)]}
}
