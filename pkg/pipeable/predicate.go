package pipeable

import (
	"strings"

	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

// Predicate recognizes instance operator calls such as source.ofType(x).
type Predicate struct {
	tree       *tsast.Tree
	classifier *Classifier
	cfg        OperatorConfig
}

// NewPredicate binds a Predicate to one tree.
func NewPredicate(tree *tsast.Tree, cfg OperatorConfig, classifier *Classifier) *Predicate {
	return &Predicate{tree: tree, cfg: cfg, classifier: classifier}
}

// Callee returns the member access invoked by call, or NoNode when the call
// is not a plain receiver.name(...) form. Optional chains are excluded.
func (p *Predicate) Callee(call tsast.NodeID) tsast.NodeID {
	t := p.tree
	if t.Kind(call) != tsast.KindCall {
		return tsast.NoNode
	}

	member := t.Field(call, "function")
	if t.Kind(member) != tsast.KindMember || t.Field(member, "optional_chain") != tsast.NoNode {
		return tsast.NoNode
	}

	obj, prop := t.Field(member, "object"), t.Field(member, "property")
	if obj == tsast.NoNode || t.Kind(prop) != tsast.KindPropertyIdentifier {
		return tsast.NoNode
	}

	if strings.Contains(string(t.Source[t.Node(obj).End:t.Node(prop).Start]), "?.") {
		return tsast.NoNode
	}

	return member
}

// Receiver returns the expression an operator call is chained on.
func (p *Predicate) Receiver(call tsast.NodeID) tsast.NodeID {
	member := p.Callee(call)
	if member == tsast.NoNode {
		return tsast.NoNode
	}

	return p.tree.Field(member, "object")
}

// OperatorName returns the invoked property name of call.
func (p *Predicate) OperatorName(call tsast.NodeID) string {
	member := p.Callee(call)
	if member == tsast.NoNode {
		return ""
	}

	return p.tree.Text(p.tree.Field(member, "property"))
}

// IsQualifyingCall reports whether id is a configured operator invoked on a
// value that is not the bare class reference, returning a stream.
func (p *Predicate) IsQualifyingCall(id tsast.NodeID) bool {
	member := p.Callee(id)
	if member == tsast.NoNode {
		return false
	}

	if !p.cfg.Has(p.tree.Text(p.tree.Field(member, "property"))) {
		return false
	}

	if p.tree.Text(p.tree.Field(member, "object")) == p.cfg.ClassReference {
		return false
	}

	return p.classifier.CallReturnsStream(id)
}
