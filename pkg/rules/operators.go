package rules

import (
	"log/slog"

	"github.com/Sumatoshi-tech/pipeshift/pkg/pipeable"
	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
	"github.com/Sumatoshi-tech/pipeshift/pkg/typecheck"
)

// Rule names.
const (
	EffectsOperatorsName = "ngrx-effects-operators"
	StoreOperatorsName   = "ngrx-store-operators"
	ChainedPipesName     = "ngrx-chained-pipes"
)

const ruleTypeFunctionality = "functionality"

// OperatorRule rewrites instance operator chains into pipeable form and
// patches the module import for the operators it introduces.
type OperatorRule struct {
	logger      *slog.Logger
	meta        Metadata
	message     string
	cfg         pipeable.OperatorConfig
	streamTypes []string
}

// NewOperatorRule builds a conversion rule for cfg.
func NewOperatorRule(meta Metadata, message string, cfg pipeable.OperatorConfig, opts Options) *OperatorRule {
	meta.Module = cfg.Module

	return &OperatorRule{
		logger:      opts.logger(),
		meta:        meta,
		message:     message,
		cfg:         cfg,
		streamTypes: opts.StreamTypes,
	}
}

// NewEffectsOperators migrates actions$.ofType(...) to pipeable ofType.
func NewEffectsOperators(opts Options) *OperatorRule {
	return NewOperatorRule(Metadata{
		Name:        EffectsOperatorsName,
		Description: "Updates the effects operators to pipeable operators.",
		Type:        ruleTypeFunctionality,
	}, "use ngrx effects pipeable operators.", pipeable.NewOperatorConfig("@ngrx/effects", "ofType"), opts)
}

// NewStoreOperators migrates store.select(...) to pipeable select.
func NewStoreOperators(opts Options) *OperatorRule {
	return NewOperatorRule(Metadata{
		Name:        StoreOperatorsName,
		Description: "Updates the store operators to pipeable operators.",
		Type:        ruleTypeFunctionality,
	}, "use ngrx store pipeable operators.", pipeable.NewOperatorConfig("@ngrx/store", "select"), opts)
}

// Metadata implements Rule.
func (r *OperatorRule) Metadata() Metadata {
	return r.meta
}

// Config returns the operator configuration of the rule.
func (r *OperatorRule) Config() pipeable.OperatorConfig {
	return r.cfg
}

// Analyze implements Rule.
func (r *OperatorRule) Analyze(tree *tsast.Tree, oracle typecheck.Oracle) []pipeable.Violation {
	r.logger.Debug("analyzing", "rule", r.meta.Name, "file", tree.Name)

	classifier := pipeable.NewClassifier(oracle, r.streamTypes)
	pred := pipeable.NewPredicate(tree, r.cfg, classifier)
	walker := pipeable.NewWalker(tree, pred, classifier)

	var out []pipeable.Violation

	tree.Walk(tree.Root(), func(id tsast.NodeID) bool {
		if !walker.IsFirstLink(id) {
			return true
		}

		root := pred.Receiver(id)

		syn, err := pipeable.SynthesizePipeable(tree, r.cfg, root, walker.Climb(root))
		if err != nil {
			r.drop(tree, id, err)

			return true
		}

		if v, ok := r.violation(tree, r.message, syn); ok {
			out = append(out, v)
		}

		return true
	})

	if len(out) == 0 {
		return nil
	}

	if patch, ok := pipeable.PatchImports(tree, r.cfg); ok {
		start, end := tree.Span(patch.Statement)
		syn := pipeable.Synthesis{Start: start, End: end, Edits: []pipeable.Edit{patch.Edit}}

		if v, ok := r.violation(tree, patch.Message(r.cfg.Module), syn); ok {
			out = append(out, v)
		}
	}

	return out
}

func (r *OperatorRule) violation(tree *tsast.Tree, message string, syn pipeable.Synthesis) (pipeable.Violation, bool) {
	return newViolation(r.logger, r.meta.Name, tree, message, syn)
}

func (r *OperatorRule) drop(tree *tsast.Tree, id tsast.NodeID, err error) {
	line, col := tree.Position(tree.Node(id).Start)
	r.logger.Warn("skipping chain", "rule", r.meta.Name, "file", tree.Name,
		"line", line+1, "column", col+1, "error", err)
}

// newViolation validates a synthesis. Invalid edits are a defect: the
// violation is dropped and logged.
func newViolation(logger *slog.Logger, rule string, tree *tsast.Tree, message string,
	syn pipeable.Synthesis,
) (pipeable.Violation, bool) {
	v, err := pipeable.NewViolation(rule, message, syn.Start, syn.End, syn.Edits, len(tree.Source))
	if err != nil {
		line, col := tree.Position(syn.Start)
		logger.Warn("dropping invalid edits", "rule", rule, "file", tree.Name,
			"line", line+1, "column", col+1, "error", err)

		return pipeable.Violation{}, false
	}

	return v, true
}
