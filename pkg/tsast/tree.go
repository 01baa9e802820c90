// Package tsast parses TypeScript sources into an immutable, arena-backed
// syntax tree with an explicit parent index.
package tsast

import "strings"

// NodeID addresses a node inside its Tree.
type NodeID int32

// NoNode is returned where a node does not exist.
const NoNode NodeID = -1

// Node is a named syntax node. Anonymous grammar tokens are not kept.
type Node struct {
	Type     string
	Field    string
	Children []NodeID
	Start    int
	End      int
	Kind     Kind
}

// Tree owns every node of one parsed file.
type Tree struct {
	Name     string
	Source   []byte
	nodes    []Node
	parents  []NodeID
	errors   int
	root     NodeID
	language Language
}

// Root returns the program node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Language returns the grammar the tree was parsed with.
func (t *Tree) Language() Language {
	return t.language
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with the given id. The result must not be modified.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Valid reports whether id addresses a node of this tree.
func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Kind returns the kind of id, or KindOther for NoNode.
func (t *Tree) Kind(id NodeID) Kind {
	if !t.Valid(id) {
		return KindOther
	}

	return t.nodes[id].Kind
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.Valid(id) {
		return NoNode
	}

	return t.parents[id]
}

// Children returns the named children of id in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.Valid(id) {
		return nil
	}

	return t.nodes[id].Children
}

// Field returns the child of id stored under the grammar field name.
func (t *Tree) Field(id NodeID, name string) NodeID {
	for _, c := range t.Children(id) {
		if t.nodes[c].Field == name {
			return c
		}
	}

	return NoNode
}

// FirstChildOfKind returns the first child of id with the given kind.
func (t *Tree) FirstChildOfKind(id NodeID, kind Kind) NodeID {
	for _, c := range t.Children(id) {
		if t.nodes[c].Kind == kind {
			return c
		}
	}

	return NoNode
}

// Span returns the byte range of id.
func (t *Tree) Span(id NodeID) (start, end int) {
	n := &t.nodes[id]

	return n.Start, n.End
}

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	if !t.Valid(id) {
		return ""
	}

	n := &t.nodes[id]

	return string(t.Source[n.Start:n.End])
}

// HasErrors reports whether the parser recovered from syntax errors.
func (t *Tree) HasErrors() bool {
	return t.errors > 0
}

// ErrorCount returns the number of error or missing nodes.
func (t *Tree) ErrorCount() int {
	return t.errors
}

// Position converts a byte offset into a zero-based line and byte column.
func (t *Tree) Position(offset int) (line, col int) {
	if offset > len(t.Source) {
		offset = len(t.Source)
	}

	prefix := t.Source[:offset]
	line = strings.Count(string(prefix), "\n")

	if nl := strings.LastIndexByte(string(prefix), '\n'); nl >= 0 {
		col = offset - nl - 1
	} else {
		col = offset
	}

	return line, col
}

// Walk visits nodes in pre-order starting at id. Returning false from fn skips
// the node's children. The traversal uses an explicit stack.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !t.Valid(id) {
		return
	}

	stack := []NodeID{id}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(cur) {
			continue
		}

		kids := t.nodes[cur].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Ancestors calls fn for each ancestor of id, nearest first, until fn
// returns false.
func (t *Tree) Ancestors(id NodeID, fn func(NodeID) bool) {
	for p := t.Parent(id); p != NoNode; p = t.Parent(p) {
		if !fn(p) {
			return
		}
	}
}

// Unwrap strips parentheses, non-null assertions and awaits around an
// expression.
func (t *Tree) Unwrap(id NodeID) NodeID {
	for {
		switch t.Kind(id) {
		case KindParenthesized, KindNonNullExpression:
			kids := t.Children(id)
			if len(kids) == 0 {
				return id
			}

			id = kids[0]
		default:
			return id
		}
	}
}
