package tsast

// Kind is the closed set of syntax node categories the rewriter reasons about.
// Grammar types that carry no meaning for the rewriter map to KindOther.
type Kind uint8

// Node kinds.
const (
	KindOther Kind = iota
	KindError
	KindProgram
	KindComment

	// Expressions.
	KindCall
	KindMember
	KindArguments
	KindIdentifier
	KindPropertyIdentifier
	KindThis
	KindSuper
	KindParenthesized
	KindAsExpression
	KindNonNullExpression
	KindNewExpression
	KindAwait
	KindArray
	KindObject
	KindString
	KindTemplateString
	KindNumber
	KindOptionalChain

	// Functions and scopes.
	KindArrowFunction
	KindFunctionExpression
	KindFunctionDeclaration
	KindMethodDefinition
	KindFormalParameters
	KindParameter
	KindStatementBlock

	// Declarations.
	KindVariableDeclarator
	KindClassDeclaration
	KindClassBody
	KindExtendsClause
	KindFieldDefinition
	KindInterfaceDeclaration
	KindTypeAliasDeclaration

	// Imports.
	KindImportStatement
	KindImportClause
	KindNamedImports
	KindImportSpecifier
	KindNamespaceImport

	// Types.
	KindTypeAnnotation
	KindTypeIdentifier
	KindGenericType
	KindNestedTypeIdentifier
	KindArrayType
	KindPredefinedType
	KindTypeArguments
)

var kindNames = [...]string{
	KindOther:                "Other",
	KindError:                "Error",
	KindProgram:              "Program",
	KindComment:              "Comment",
	KindCall:                 "Call",
	KindMember:               "Member",
	KindArguments:            "Arguments",
	KindIdentifier:           "Identifier",
	KindPropertyIdentifier:   "PropertyIdentifier",
	KindThis:                 "This",
	KindSuper:                "Super",
	KindParenthesized:        "Parenthesized",
	KindAsExpression:         "AsExpression",
	KindNonNullExpression:    "NonNullExpression",
	KindNewExpression:        "NewExpression",
	KindAwait:                "Await",
	KindArray:                "Array",
	KindObject:               "Object",
	KindString:               "String",
	KindTemplateString:       "TemplateString",
	KindNumber:               "Number",
	KindOptionalChain:        "OptionalChain",
	KindArrowFunction:        "ArrowFunction",
	KindFunctionExpression:   "FunctionExpression",
	KindFunctionDeclaration:  "FunctionDeclaration",
	KindMethodDefinition:     "MethodDefinition",
	KindFormalParameters:     "FormalParameters",
	KindParameter:            "Parameter",
	KindStatementBlock:       "StatementBlock",
	KindVariableDeclarator:   "VariableDeclarator",
	KindClassDeclaration:     "ClassDeclaration",
	KindClassBody:            "ClassBody",
	KindExtendsClause:        "ExtendsClause",
	KindFieldDefinition:      "FieldDefinition",
	KindInterfaceDeclaration: "InterfaceDeclaration",
	KindTypeAliasDeclaration: "TypeAliasDeclaration",
	KindImportStatement:      "ImportStatement",
	KindImportClause:         "ImportClause",
	KindNamedImports:         "NamedImports",
	KindImportSpecifier:      "ImportSpecifier",
	KindNamespaceImport:      "NamespaceImport",
	KindTypeAnnotation:       "TypeAnnotation",
	KindTypeIdentifier:       "TypeIdentifier",
	KindGenericType:          "GenericType",
	KindNestedTypeIdentifier: "NestedTypeIdentifier",
	KindArrayType:            "ArrayType",
	KindPredefinedType:       "PredefinedType",
	KindTypeArguments:        "TypeArguments",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(?)"
}

// IsFunctionBoundary reports whether nodes of this kind open an anonymous
// function scope that chains must not be merged across.
func (k Kind) IsFunctionBoundary() bool {
	switch k {
	case KindArrowFunction, KindFunctionExpression:
		return true
	default:
		return false
	}
}

// IsScope reports whether nodes of this kind introduce a lexical binding scope.
func (k Kind) IsScope() bool {
	switch k {
	case KindProgram, KindStatementBlock, KindArrowFunction, KindFunctionExpression,
		KindFunctionDeclaration, KindMethodDefinition, KindClassBody:
		return true
	default:
		return false
	}
}

// grammarKinds maps tree-sitter-typescript node types to kinds. Both the
// typescript and tsx grammars share these names.
var grammarKinds = map[string]Kind{
	"ERROR":                          KindError,
	"program":                        KindProgram,
	"comment":                        KindComment,
	"call_expression":                KindCall,
	"member_expression":              KindMember,
	"arguments":                      KindArguments,
	"identifier":                     KindIdentifier,
	"shorthand_property_identifier":  KindIdentifier,
	"property_identifier":            KindPropertyIdentifier,
	"private_property_identifier":    KindPropertyIdentifier,
	"this":                           KindThis,
	"super":                          KindSuper,
	"parenthesized_expression":       KindParenthesized,
	"as_expression":                  KindAsExpression,
	"satisfies_expression":           KindAsExpression,
	"non_null_expression":            KindNonNullExpression,
	"new_expression":                 KindNewExpression,
	"await_expression":               KindAwait,
	"array":                          KindArray,
	"object":                         KindObject,
	"string":                         KindString,
	"template_string":                KindTemplateString,
	"number":                         KindNumber,
	"optional_chain":                 KindOptionalChain,
	"arrow_function":                 KindArrowFunction,
	"function_expression":            KindFunctionExpression,
	"function":                       KindFunctionExpression,
	"generator_function":             KindFunctionExpression,
	"function_declaration":           KindFunctionDeclaration,
	"generator_function_declaration": KindFunctionDeclaration,
	"method_definition":              KindMethodDefinition,
	"formal_parameters":              KindFormalParameters,
	"required_parameter":             KindParameter,
	"optional_parameter":             KindParameter,
	"statement_block":                KindStatementBlock,
	"variable_declarator":            KindVariableDeclarator,
	"class_declaration":              KindClassDeclaration,
	"abstract_class_declaration":     KindClassDeclaration,
	"class":                          KindClassDeclaration,
	"class_body":                     KindClassBody,
	"extends_clause":                 KindExtendsClause,
	"public_field_definition":        KindFieldDefinition,
	"interface_declaration":          KindInterfaceDeclaration,
	"type_alias_declaration":         KindTypeAliasDeclaration,
	"import_statement":               KindImportStatement,
	"import_clause":                  KindImportClause,
	"named_imports":                  KindNamedImports,
	"import_specifier":               KindImportSpecifier,
	"namespace_import":               KindNamespaceImport,
	"type_annotation":                KindTypeAnnotation,
	"type_identifier":                KindTypeIdentifier,
	"generic_type":                   KindGenericType,
	"nested_type_identifier":         KindNestedTypeIdentifier,
	"array_type":                     KindArrayType,
	"predefined_type":                KindPredefinedType,
	"type_arguments":                 KindTypeArguments,
}

// KindOf maps a grammar node type to its Kind.
func KindOf(grammarType string) Kind {
	if k, ok := grammarKinds[grammarType]; ok {
		return k
	}

	return KindOther
}

// fieldsByType lists the grammar fields recorded on children, per node type.
// Only fields the rewriter reads are listed.
var fieldsByType = map[string][]string{
	"call_expression":                {"function", "arguments"},
	"member_expression":              {"object", "property", "optional_chain"},
	"new_expression":                 {"constructor", "arguments"},
	"arrow_function":                 {"parameter", "parameters", "body", "return_type"},
	"function_expression":            {"name", "parameters", "body", "return_type"},
	"function":                       {"name", "parameters", "body", "return_type"},
	"generator_function":             {"name", "parameters", "body", "return_type"},
	"function_declaration":           {"name", "parameters", "body", "return_type"},
	"generator_function_declaration": {"name", "parameters", "body", "return_type"},
	"method_definition":              {"name", "parameters", "body", "return_type"},
	"class_declaration":              {"name", "body"},
	"abstract_class_declaration":     {"name", "body"},
	"class":                          {"name", "body"},
	"extends_clause":                 {"value"},
	"public_field_definition":        {"name", "type", "value"},
	"interface_declaration":          {"name", "body"},
	"type_alias_declaration":         {"name", "value"},
	"required_parameter":             {"pattern", "type", "value"},
	"optional_parameter":             {"pattern", "type", "value"},
	"variable_declarator":            {"name", "type", "value"},
	"import_statement":               {"source"},
	"import_specifier":               {"name", "alias"},
	"generic_type":                   {"name", "type_arguments"},
}
