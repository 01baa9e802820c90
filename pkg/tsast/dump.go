package tsast

// DumpNode is a serializable view of a subtree, used by the tree command.
type DumpNode struct {
	Type     string      `json:"type"              yaml:"type"`
	Kind     string      `json:"kind"              yaml:"kind"`
	Field    string      `json:"field,omitempty"    yaml:"field,omitempty"`
	Text     string      `json:"text,omitempty"     yaml:"text,omitempty"`
	Children []*DumpNode `json:"children,omitempty" yaml:"children,omitempty"`
	Start    int         `json:"start"             yaml:"start"`
	End      int         `json:"end"               yaml:"end"`
}

// Dump converts the subtree rooted at id. Leaf nodes carry their text.
func (t *Tree) Dump(id NodeID) *DumpNode {
	if !t.Valid(id) {
		return nil
	}

	index := make(map[NodeID]*DumpNode)

	var root *DumpNode

	t.Walk(id, func(cur NodeID) bool {
		n := t.Node(cur)
		d := &DumpNode{
			Type:  n.Type,
			Kind:  n.Kind.String(),
			Field: n.Field,
			Start: n.Start,
			End:   n.End,
		}

		if len(n.Children) == 0 {
			d.Text = t.Text(cur)
		}

		index[cur] = d

		if cur == id {
			root = d
		} else if parent, ok := index[t.Parent(cur)]; ok {
			parent.Children = append(parent.Children, d)
		}

		return true
	})

	return root
}
