package rules

import (
	"log/slog"

	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

const chainedPipesMessage = "prefer having no pipes chained."

// ChainedPipes merges directly adjacent pipe calls, one pair per chain and
// pass.
type ChainedPipes struct {
	logger      *slog.Logger
	cfg         pipeable.OperatorConfig
	streamTypes []string
}

// NewChainedPipes returns the pipe merging rule.
func NewChainedPipes(opts Options) *ChainedPipes {
	return &ChainedPipes{
		logger:      opts.logger(),
		cfg:         pipeable.NewOperatorConfig("rxjs", pipeable.DefaultComposeName),
		streamTypes: opts.StreamTypes,
	}
}

// Metadata implements Rule.
func (r *ChainedPipes) Metadata() Metadata {
	return Metadata{
		Name:        ChainedPipesName,
		Description: "Checks if pipes are chained.",
		Type:        ruleTypeFunctionality,
		Module:      r.cfg.Module,
	}
}

// Analyze implements Rule.
func (r *ChainedPipes) Analyze(tree *tsast.Tree, oracle typecheck.Oracle) []pipeable.Violation {
	r.logger.Debug("analyzing", "rule", ChainedPipesName, "file", tree.Name)

	classifier := pipeable.NewClassifier(oracle, r.streamTypes)
	pred := pipeable.NewPredicate(tree, r.cfg, classifier)
	walker := pipeable.NewWalker(tree, pred, classifier)

	var out []pipeable.Violation

	tree.Walk(tree.Root(), func(id tsast.NodeID) bool {
		if !walker.IsFirstLink(id) {
			return true
		}

		member := tree.Parent(id)
		second := tree.Parent(member)

		if tree.Kind(member) != tsast.KindMember || tree.Field(member, "object") != id ||
			tree.Field(second, "function") != member || !pred.IsQualifyingCall(second) {
			return true
		}

		syn, err := pipeable.SynthesizeMerge(tree, id, second)
		if err != nil {
			return true
		}

		if v, ok := newViolation(r.logger, ChainedPipesName, tree, chainedPipesMessage, syn); ok {
			out = append(out, v)
		}

		return true
	})

	return out
}
