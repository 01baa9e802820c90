package pipeable

import "github.com/Sumatoshi-tech/pipeshift/pkg/tsast"

// Walker finds the extent of operator chains.
type Walker struct {
	tree       *tsast.Tree
	pred       *Predicate
	classifier *Classifier
}

// NewWalker returns a Walker using pred for link recognition.
func NewWalker(tree *tsast.Tree, pred *Predicate, classifier *Classifier) *Walker {
	return &Walker{tree: tree, pred: pred, classifier: classifier}
}

// Climb follows node → member access → call upward while the call
// qualifies. It never crosses an anonymous function boundary and returns id
// when no ancestor qualifies.
func (w *Walker) Climb(id tsast.NodeID) tsast.NodeID {
	t := w.tree

	for {
		parent := t.Parent(id)
		if parent == tsast.NoNode || t.Kind(parent).IsFunctionBoundary() {
			return id
		}

		if t.Kind(parent) != tsast.KindMember || t.Field(parent, "object") != id {
			return id
		}

		grand := t.Parent(parent)
		if grand == tsast.NoNode || t.Field(grand, "function") != parent || !w.pred.IsQualifyingCall(grand) {
			return id
		}

		id = grand
	}
}

// ChainRoot searches down through qualifying receivers from call. The first
// non-qualifying receiver is the root and must be stream-typed; otherwise
// the candidate is discarded.
func (w *Walker) ChainRoot(call tsast.NodeID) (tsast.NodeID, bool) {
	if !w.pred.IsQualifyingCall(call) {
		return tsast.NoNode, false
	}

	cur := call

	for {
		recv := w.pred.Receiver(cur)
		if recv == tsast.NoNode {
			return tsast.NoNode, false
		}

		if !w.pred.IsQualifyingCall(recv) {
			if !w.classifier.IsStream(recv) {
				return tsast.NoNode, false
			}

			return recv, true
		}

		cur = recv
	}
}

// IsFirstLink reports whether call starts a chain: it qualifies, its receiver
// does not, and the receiver is stream-typed.
func (w *Walker) IsFirstLink(call tsast.NodeID) bool {
	if !w.pred.IsQualifyingCall(call) {
		return false
	}

	recv := w.pred.Receiver(call)

	return !w.pred.IsQualifyingCall(recv) && w.classifier.IsStream(recv)
}

// Links returns the calls of the chain rooted at root up to tail, first link
// first. It returns nil if tail is not reachable from root.
func (w *Walker) Links(root, tail tsast.NodeID) []tsast.NodeID {
	t := w.tree

	var links []tsast.NodeID

	for cur := root; cur != tail; {
		member := t.Parent(cur)
		if t.Kind(member) != tsast.KindMember {
			return nil
		}

		call := t.Parent(member)
		if t.Kind(call) != tsast.KindCall {
			return nil
		}

		links = append(links, call)
		cur = call
	}

	return links
}
