package tsast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/pipeshift/pkg/safeconv"
)

// Sentinel errors for parsing.
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrNoRootNode      = errors.New("parser returned no root node")
	errPoolType        = errors.New("parser pool returned unexpected type")
)

// Language selects the grammar used for a file.
type Language uint8

// Supported grammars.
const (
	TypeScript Language = iota
	TSX
)

// String returns the grammar name.
func (l Language) String() string {
	if l == TSX {
		return "tsx"
	}

	return "typescript"
}

// LanguageFor picks the grammar for a file name. Declaration files are not
// supported since they contain no executable chains.
func LanguageFor(name string) (Language, bool) {
	base := strings.ToLower(filepath.Base(name))
	if strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".d.mts") || strings.HasSuffix(base, ".d.cts") {
		return TypeScript, false
	}

	switch filepath.Ext(base) {
	case ".ts", ".mts", ".cts":
		return TypeScript, true
	case ".tsx":
		return TSX, true
	default:
		return TypeScript, false
	}
}

// Parser converts sources into Trees. It is safe for concurrent use; each
// grammar keeps a pool of tree-sitter parsers.
type Parser struct {
	pools [2]sync.Pool
}

// NewParser creates a Parser for the TypeScript and TSX grammars.
func NewParser() *Parser {
	p := &Parser{}

	langs := [2]*sitter.Language{
		TypeScript: sitter.NewLanguage(typescript.GetLanguage()),
		TSX:        sitter.NewLanguage(tsx.GetLanguage()),
	}

	for i, lang := range langs {
		p.pools[i] = sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		}
	}

	return p
}

// ParseFile parses src with the grammar chosen from the file name.
func (p *Parser) ParseFile(ctx context.Context, name string, src []byte) (*Tree, error) {
	lang, ok := LanguageFor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	tree, err := p.Parse(ctx, lang, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	tree.Name = name

	return tree, nil
}

// Parse parses src with the given grammar.
func (p *Parser) Parse(ctx context.Context, lang Language, src []byte) (*Tree, error) {
	pool := &p.pools[lang]

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	tsTree, err := tsParser.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.IsNull() {
		return nil, ErrNoRootNode
	}

	tree := build(root, src)
	tree.language = lang

	return tree, nil
}

type pending struct {
	node   sitter.Node
	parent NodeID
	field  string
}

// build copies the named nodes of a tree-sitter tree into an arena. It walks
// with an explicit stack so deeply nested chains cannot exhaust the goroutine
// stack.
func build(root sitter.Node, src []byte) *Tree {
	tree := &Tree{Source: src, root: 0}
	stack := []pending{{node: root, parent: NoNode}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := NodeID(len(tree.nodes))
		typ := cur.node.Type()
		start := safeconv.MustUintToInt(cur.node.StartByte())
		end := safeconv.MustUintToInt(cur.node.EndByte())

		kind := KindOf(typ)
		if kind == KindError || (start == end && cur.node.IsNamed() && kind != KindProgram) {
			tree.errors++
		}

		tree.nodes = append(tree.nodes, Node{
			Type:  typ,
			Field: cur.field,
			Start: start,
			End:   end,
			Kind:  kind,
		})
		tree.parents = append(tree.parents, cur.parent)

		if cur.parent != NoNode {
			tree.nodes[cur.parent].Children = append(tree.nodes[cur.parent].Children, id)
		}

		fields := childFields(cur.node, typ)
		count := cur.node.NamedChildCount()

		// Push in reverse so children are numbered in source order.
		for idx := count; idx > 0; idx-- {
			child := cur.node.NamedChild(idx - 1)
			if child.IsNull() {
				continue
			}

			stack = append(stack, pending{node: child, parent: id, field: fields.lookup(child)})
		}
	}

	return tree
}

type fieldChild struct {
	name  string
	typ   string
	start uint
	end   uint
}

type fieldSet []fieldChild

func (fs fieldSet) lookup(n sitter.Node) string {
	for _, f := range fs {
		if f.start == n.StartByte() && f.end == n.EndByte() && f.typ == n.Type() {
			return f.name
		}
	}

	return ""
}

// childFields resolves the grammar fields the rewriter reads for a node type.
func childFields(n sitter.Node, typ string) fieldSet {
	names := fieldsByType[typ]
	if len(names) == 0 {
		return nil
	}

	fs := make(fieldSet, 0, len(names))

	for _, name := range names {
		c := n.ChildByFieldName(name)
		if c.IsNull() {
			continue
		}

		fs = append(fs, fieldChild{name: name, typ: c.Type(), start: c.StartByte(), end: c.EndByte()})
	}

	return fs
}
