package typecheck

import (
	"strings"

	"github.com/Sumatoshi-tech/pipeshift/pkg/tsast"
)

const (
	classReference = "Observable"
	constructorKey = "constructor"
	arrayName      = "Array"
)

var arrayMethods = Set("map", "filter", "concat", "slice", "reverse", "sort", "flat", "flatMap", "splice")

type bindingKind uint8

const (
	bindValue bindingKind = iota
	bindFunction
	bindOpaque
)

// binding records what a name refers to. Annotation takes precedence over the
// initializer; returns holds a function's declared return type.
type binding struct {
	annotation tsast.NodeID
	value      tsast.NodeID
	returns    tsast.NodeID
	kind       bindingKind
}

func opaqueBinding(annotation tsast.NodeID) binding {
	return binding{kind: bindOpaque, annotation: annotation, value: tsast.NoNode, returns: tsast.NoNode}
}

func functionBinding(returns tsast.NodeID) binding {
	return binding{kind: bindFunction, annotation: tsast.NoNode, value: tsast.NoNode, returns: returns}
}

func valueBinding(annotation, value tsast.NodeID) binding {
	return binding{kind: bindValue, annotation: annotation, value: value, returns: tsast.NoNode}
}

// imported is a name brought in by an import declaration.
type imported struct {
	name   string
	module string
}

// Resolver is an Oracle for a single tree. It is not safe for concurrent use.
type Resolver struct {
	tree       *tsast.Tree
	streams    map[string]struct{}
	creation   map[string]struct{}
	methods    map[string]struct{}
	modules    []string
	scopes     map[tsast.NodeID]map[string]binding
	members    map[tsast.NodeID]map[string]binding
	imports    map[string]imported
	namespaces map[string]string
	locals     map[string]struct{}
	aliases    map[string]tsast.NodeID
	heritage   map[string]string
	expanding  map[string]bool
	memo       map[tsast.NodeID]Type
	inProgress map[tsast.NodeID]bool
}

// NewResolver indexes the declarations of tree.
func NewResolver(tree *tsast.Tree, opts Options) *Resolver {
	r := &Resolver{
		tree:       tree,
		streams:    Set(opts.StreamTypes...),
		creation:   Set(opts.CreationFunctions...),
		methods:    Set(opts.StreamMethods...),
		modules:    opts.StreamModules,
		scopes:     make(map[tsast.NodeID]map[string]binding),
		members:    make(map[tsast.NodeID]map[string]binding),
		imports:    make(map[string]imported),
		namespaces: make(map[string]string),
		locals:     make(map[string]struct{}),
		aliases:    make(map[string]tsast.NodeID),
		heritage:   make(map[string]string),
		expanding:  make(map[string]bool),
		memo:       make(map[tsast.NodeID]Type),
		inProgress: make(map[tsast.NodeID]bool),
	}

	if len(r.modules) == 0 {
		r.modules = DefaultStreamModules
	}

	r.index()

	return r
}

func (r *Resolver) index() {
	t := r.tree

	t.Walk(t.Root(), func(id tsast.NodeID) bool {
		switch t.Kind(id) {
		case tsast.KindVariableDeclarator:
			r.indexDeclarator(id)
		case tsast.KindParameter:
			r.indexParameter(id)
		case tsast.KindArrowFunction:
			if p := t.Field(id, "parameter"); p != tsast.NoNode {
				r.bind(id, t.Text(p), opaqueBinding(tsast.NoNode))
			}
		case tsast.KindFunctionDeclaration:
			if name := t.Field(id, "name"); name != tsast.NoNode {
				r.bind(r.scopeOf(id), t.Text(name), functionBinding(t.Field(id, "return_type")))
			}
		case tsast.KindImportStatement:
			r.indexImport(id)

			return false
		case tsast.KindClassDeclaration:
			r.indexClass(id)
		case tsast.KindInterfaceDeclaration:
			r.declareLocal(t.Text(t.Field(id, "name")))
		case tsast.KindTypeAliasDeclaration:
			name := t.Text(t.Field(id, "name"))
			r.declareLocal(name)

			if value := t.Field(id, "value"); value != tsast.NoNode {
				r.aliases[name] = value
			}
		case tsast.KindFieldDefinition:
			r.indexField(id)
		case tsast.KindMethodDefinition:
			r.indexMethod(id)
		default:
		}

		return true
	})
}

func (r *Resolver) bind(scope tsast.NodeID, name string, b binding) {
	if scope == tsast.NoNode || name == "" {
		return
	}

	names := r.scopes[scope]
	if names == nil {
		names = make(map[string]binding)
		r.scopes[scope] = names
	}

	names[name] = b
}

func (r *Resolver) bindMember(body tsast.NodeID, name string, b binding) {
	if body == tsast.NoNode || name == "" {
		return
	}

	names := r.members[body]
	if names == nil {
		names = make(map[string]binding)
		r.members[body] = names
	}

	names[name] = b
}

// scopeOf returns the nearest ancestor that introduces a scope.
func (r *Resolver) scopeOf(id tsast.NodeID) tsast.NodeID {
	scope := tsast.NoNode

	r.tree.Ancestors(id, func(p tsast.NodeID) bool {
		if r.tree.Kind(p).IsScope() {
			scope = p

			return false
		}

		return true
	})

	return scope
}

// classBodyOf returns the class body enclosing id, seen through arrow
// functions but not through function expressions, which rebind this.
func (r *Resolver) classBodyOf(id tsast.NodeID) tsast.NodeID {
	body := tsast.NoNode

	r.tree.Ancestors(id, func(p tsast.NodeID) bool {
		switch r.tree.Kind(p) {
		case tsast.KindClassBody:
			body = p

			return false
		case tsast.KindFunctionExpression, tsast.KindFunctionDeclaration:
			return false
		default:
			return true
		}
	})

	return body
}

func (r *Resolver) indexDeclarator(id tsast.NodeID) {
	t := r.tree

	name := t.Field(id, "name")
	if t.Kind(name) != tsast.KindIdentifier {
		return
	}

	b := valueBinding(t.Field(id, "type"), t.Field(id, "value"))

	if v := t.Unwrap(b.value); t.Kind(v).IsFunctionBoundary() {
		b = functionBinding(t.Field(v, "return_type"))
	}

	r.bind(r.scopeOf(id), t.Text(name), b)
}

func (r *Resolver) indexParameter(id tsast.NodeID) {
	t := r.tree

	pattern := t.Field(id, "pattern")
	if t.Kind(pattern) != tsast.KindIdentifier {
		return
	}

	name := t.Text(pattern)
	b := opaqueBinding(t.Field(id, "type"))

	params := t.Parent(id)
	fn := t.Parent(params)
	r.bind(fn, name, b)

	if t.Kind(fn) == tsast.KindMethodDefinition && t.Text(t.Field(fn, "name")) == constructorKey && isParameterProperty(t.Text(id)) {
		r.bindMember(t.Parent(fn), name, b)
	}
}

// isParameterProperty reports whether a constructor parameter declares a
// class member through an accessibility or readonly modifier.
func isParameterProperty(text string) bool {
	for _, prefix := range []string{"private ", "public ", "protected ", "readonly "} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}

	return false
}

func (r *Resolver) declareLocal(name string) {
	if name != "" {
		r.locals[name] = struct{}{}
	}
}

// indexImport records default, namespace and named imports by local name.
func (r *Resolver) indexImport(stmt tsast.NodeID) {
	t := r.tree

	module := importSource(t, stmt)
	clause := t.FirstChildOfKind(stmt, tsast.KindImportClause)

	if module == "" || clause == tsast.NoNode {
		return
	}

	for _, c := range t.Children(clause) {
		switch t.Kind(c) {
		case tsast.KindIdentifier:
			r.imports[t.Text(c)] = imported{name: t.Text(c), module: module}
		case tsast.KindNamespaceImport:
			if ns := t.FirstChildOfKind(c, tsast.KindIdentifier); ns != tsast.NoNode {
				r.namespaces[t.Text(ns)] = module
			}
		case tsast.KindNamedImports:
			for _, spec := range t.Children(c) {
				if t.Kind(spec) != tsast.KindImportSpecifier {
					continue
				}

				name := t.Text(t.Field(spec, "name"))
				local := name

				if alias := t.Field(spec, "alias"); alias != tsast.NoNode {
					local = t.Text(alias)
				}

				r.imports[local] = imported{name: name, module: module}
			}
		default:
		}
	}
}

// importSource returns the unquoted module specifier of an import.
func importSource(t *tsast.Tree, stmt tsast.NodeID) string {
	src := t.Field(stmt, "source")
	if src == tsast.NoNode {
		src = t.FirstChildOfKind(stmt, tsast.KindString)
	}

	text := t.Text(src)
	if len(text) < 2 {
		return ""
	}

	return text[1 : len(text)-1]
}

func (r *Resolver) indexClass(id tsast.NodeID) {
	t := r.tree

	name := t.Field(id, "name")
	if name == tsast.NoNode {
		return
	}

	r.declareLocal(t.Text(name))

	t.Walk(id, func(c tsast.NodeID) bool {
		if c != id && t.Kind(c) == tsast.KindClassBody {
			return false
		}

		if t.Kind(c) == tsast.KindExtendsClause {
			value := t.Field(c, "value")
			if value == tsast.NoNode {
				value = t.FirstChildOfKind(c, tsast.KindIdentifier)
			}

			if value != tsast.NoNode {
				r.heritage[t.Text(name)] = stripTypeArgs(t.Text(value))
			}

			return false
		}

		return true
	})
}

func (r *Resolver) indexField(id tsast.NodeID) {
	t := r.tree
	b := valueBinding(t.Field(id, "type"), t.Field(id, "value"))

	if v := t.Unwrap(b.value); t.Kind(v).IsFunctionBoundary() {
		b = functionBinding(t.Field(v, "return_type"))
	}

	r.bindMember(t.Parent(id), t.Text(t.Field(id, "name")), b)
}

func (r *Resolver) indexMethod(id tsast.NodeID) {
	t := r.tree

	name := t.Text(t.Field(id, "name"))
	if name == constructorKey {
		return
	}

	r.bindMember(t.Parent(id), name, functionBinding(t.Field(id, "return_type")))
}

// lookup resolves an identifier through the enclosing scopes.
func (r *Resolver) lookup(id tsast.NodeID, name string) (binding, bool) {
	var (
		found binding
		ok    bool
	)

	r.tree.Ancestors(id, func(p tsast.NodeID) bool {
		if names, has := r.scopes[p]; has {
			if b, hit := names[name]; hit {
				found, ok = b, true

				return false
			}
		}

		return true
	})

	return found, ok
}

// TypeOf resolves the static type of an expression.
func (r *Resolver) TypeOf(expr tsast.NodeID) Type {
	if !r.tree.Valid(expr) {
		return Unknown
	}

	if t, ok := r.memo[expr]; ok {
		return t
	}

	if r.inProgress[expr] {
		return Unknown
	}

	r.inProgress[expr] = true
	t := r.typeOf(expr)
	delete(r.inProgress, expr)
	r.memo[expr] = t

	return t
}

func (r *Resolver) typeOf(expr tsast.NodeID) Type {
	t := r.tree
	expr = t.Unwrap(expr)

	switch t.Kind(expr) {
	case tsast.KindIdentifier:
		b, ok := r.lookup(expr, t.Text(expr))
		if !ok {
			return Unknown
		}

		return r.bindingType(b)
	case tsast.KindMember:
		return r.memberType(expr)
	case tsast.KindCall:
		return r.ReturnTypeOf(expr)
	case tsast.KindNewExpression:
		return r.named(t.Text(t.Field(expr, "constructor")))
	case tsast.KindAsExpression:
		kids := t.Children(expr)
		if len(kids) < 2 {
			return Unknown
		}

		return r.annotationType(kids[len(kids)-1])
	case tsast.KindArray:
		return Type{Name: arrayName}
	case tsast.KindString, tsast.KindTemplateString:
		return Type{Name: "string"}
	case tsast.KindNumber:
		return Type{Name: "number"}
	default:
		return Unknown
	}
}

func (r *Resolver) bindingType(b binding) Type {
	switch {
	case b.kind == bindFunction:
		return Unknown
	case b.annotation != tsast.NoNode:
		return r.annotationType(b.annotation)
	case b.kind == bindOpaque:
		return Unknown
	default:
		return r.TypeOf(b.value)
	}
}

// memberType resolves this.member references against the enclosing class.
func (r *Resolver) memberType(expr tsast.NodeID) Type {
	t := r.tree

	obj := t.Unwrap(t.Field(expr, "object"))
	if t.Kind(obj) != tsast.KindThis || t.Field(expr, "optional_chain") != tsast.NoNode {
		return Unknown
	}

	body := r.classBodyOf(expr)

	b, ok := r.members[body][t.Text(t.Field(expr, "property"))]
	if !ok {
		return Unknown
	}

	return r.bindingType(b)
}

// ReturnTypeOf resolves the result type of a call expression.
func (r *Resolver) ReturnTypeOf(call tsast.NodeID) Type {
	t := r.tree
	if t.Kind(call) != tsast.KindCall {
		return Unknown
	}

	callee := t.Unwrap(t.Field(call, "function"))

	switch t.Kind(callee) {
	case tsast.KindIdentifier:
		name := t.Text(callee)

		if b, ok := r.lookup(callee, name); ok {
			if b.kind == bindFunction && b.returns != tsast.NoNode {
				return r.annotationType(b.returns)
			}

			return Unknown
		}

		if _, ok := r.creation[name]; !ok {
			return Unknown
		}

		if imp, ok := r.imports[name]; ok {
			if !r.streamModule(imp.module) {
				return Unknown
			}

			return Type{Name: classReference, Module: imp.module, Origin: OriginLibrary}
		}

		return Type{Name: classReference}
	case tsast.KindMember:
		return r.methodReturnType(callee)
	default:
		return Unknown
	}
}

func (r *Resolver) methodReturnType(member tsast.NodeID) Type {
	t := r.tree
	obj := t.Field(member, "object")
	prop := t.Text(t.Field(member, "property"))

	if t.Kind(obj) == tsast.KindIdentifier && t.Text(obj) == classReference {
		if _, bound := r.lookup(obj, classReference); !bound {
			if typ := r.named(classReference); typ.Origin == OriginAmbient || typ.Origin == OriginLibrary {
				return typ
			}
		}
	}

	if inner := t.Unwrap(obj); t.Kind(inner) == tsast.KindThis {
		if b, ok := r.members[r.classBodyOf(member)][prop]; ok && b.kind == bindFunction {
			if b.returns != tsast.NoNode {
				return r.annotationType(b.returns)
			}

			return Unknown
		}
	}

	recv := r.TypeOf(obj)

	switch {
	case recv.IsArray():
		if _, ok := arrayMethods[prop]; ok {
			return Type{Name: arrayName}
		}
	case recv.Is(r.streams):
		if _, ok := r.methods[prop]; ok {
			return Type{Name: classReference}
		}
	default:
	}

	return Unknown
}

// annotationType converts a type annotation or type node into a Type.
func (r *Resolver) annotationType(node tsast.NodeID) Type {
	t := r.tree

	for t.Kind(node) == tsast.KindTypeAnnotation {
		kids := t.Children(node)
		if len(kids) == 0 {
			return Unknown
		}

		node = kids[0]
	}

	switch t.Kind(node) {
	case tsast.KindTypeIdentifier, tsast.KindNestedTypeIdentifier, tsast.KindGenericType:
		return r.named(t.Text(node))
	case tsast.KindArrayType:
		return Type{Name: arrayName}
	case tsast.KindPredefinedType:
		return Type{Name: t.Text(node)}
	default:
		return Unknown
	}
}

// named builds a Type from a type reference. Local type aliases are
// expanded and local class heritage is followed until it leaves the file.
func (r *Resolver) named(text string) Type {
	typ := r.origin(text)
	if !typ.Known() {
		return Unknown
	}

	if value, ok := r.aliases[typ.Name]; ok && typ.Origin == OriginLocal {
		if r.expanding[typ.Name] {
			return Unknown
		}

		r.expanding[typ.Name] = true
		defer delete(r.expanding, typ.Name)

		return r.annotationType(value)
	}

	seen := map[string]bool{typ.Name: true}
	cur := typ

	for cur.Origin == OriginLocal {
		super, ok := r.heritage[cur.Name]
		if !ok {
			break
		}

		cur = r.origin(super)
		if !cur.Known() || seen[cur.Name] {
			break
		}

		seen[cur.Name] = true

		if cur.Origin == OriginAmbient || cur.Origin == OriginLibrary {
			typ.Supers = append(typ.Supers, cur.Name)
		}
	}

	return typ
}

// origin resolves a type reference to its exported name and where that
// name is bound.
func (r *Resolver) origin(text string) Type {
	text = stripTypeArgs(text)
	if text == "" {
		return Unknown
	}

	if i := strings.LastIndexByte(text, '.'); i >= 0 {
		qualifier, _, _ := strings.Cut(text, ".")
		name := text[i+1:]

		if module, ok := r.namespaces[qualifier]; ok {
			return r.importedType(name, module)
		}

		if imp, ok := r.imports[qualifier]; ok {
			return r.importedType(name, imp.module)
		}

		if _, ok := r.locals[qualifier]; ok {
			return Type{Name: name, Origin: OriginLocal}
		}

		return Type{Name: name}
	}

	if _, ok := r.locals[text]; ok {
		return Type{Name: text, Origin: OriginLocal}
	}

	if imp, ok := r.imports[text]; ok {
		return r.importedType(imp.name, imp.module)
	}

	return Type{Name: text}
}

func (r *Resolver) importedType(name, module string) Type {
	if r.streamModule(module) {
		return Type{Name: name, Module: module, Origin: OriginLibrary}
	}

	return Type{Name: name, Module: module, Origin: OriginForeign}
}

// streamModule reports whether an import source belongs to a stream library.
func (r *Resolver) streamModule(module string) bool {
	for _, prefix := range r.modules {
		if strings.HasPrefix(module, prefix) {
			return true
		}
	}

	return false
}

// stripTypeArgs removes type arguments from a type reference.
func stripTypeArgs(text string) string {
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i]
	}

	return strings.TrimSpace(text)
}
