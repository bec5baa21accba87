package parser

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/callgraph-mcp/pkg/types"
)

var (
	javaScriptExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
	typeScriptExtensions = []string{".ts", ".mts", ".cts"}
	tsxExtensions        = []string{".tsx"}
)

// JavaScriptParser extracts functions from JavaScript and TypeScript using
// tree-sitter. It recognises function declarations, class and object
// methods, and arrow or function expressions bound to a variable or an
// object key. Anonymous callbacks are not recorded; their calls count
// toward the enclosing named function.
type JavaScriptParser struct{}

// NewJavaScriptParser creates a JavaScript/TypeScript parser
func NewJavaScriptParser() *JavaScriptParser {
	return &JavaScriptParser{}
}

// CanHandle implements Capability
func (p *JavaScriptParser) CanHandle(path string) bool {
	return hasExtension(path, javaScriptExtensions) ||
		hasExtension(path, typeScriptExtensions) ||
		hasExtension(path, tsxExtensions)
}

func languageFor(path string) (*sitter.Language, string) {
	switch {
	case hasExtension(path, tsxExtensions):
		return tsx.GetLanguage(), "tsx"
	case hasExtension(path, typeScriptExtensions):
		return typescript.GetLanguage(), "typescript"
	default:
		return javascript.GetLanguage(), "javascript"
	}
}

// Extract parses content and returns its function records
func (p *JavaScriptParser) Extract(ctx context.Context, path string, content []byte) (*types.ParseResult, error) {
	lang, name := languageFor(path)

	// New parser per call; sitter parsers are not safe for concurrent use
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	result := &types.ParseResult{Language: name, Functions: make([]types.Function, 0)}

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root node for %s", path)
	}
	if root.HasError() {
		result.AddError(path, 0, 0, "source contains syntax errors")
	}

	w := &jsWalker{src: content, path: path}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fn, ok := w.function(n); ok {
			result.Functions = append(result.Functions, fn)
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}

	return result, nil
}

// jsWalker holds the source for one extraction
type jsWalker struct {
	src  []byte
	path string
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration",
		"method_definition", "arrow_function",
		"function", "function_expression", "generator_function":
		return true
	}
	return false
}

// describe names a function node and classifies it. Anonymous functions
// report ok == false.
func (w *jsWalker) describe(n *sitter.Node) (name string, typ types.FunctionType, ok bool) {
	parent := n.Parent()

	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		if id := n.ChildByFieldName("name"); id != nil {
			return id.Content(w.src), types.TypeFunction, true
		}
		return "", "", false

	case "method_definition":
		id := n.ChildByFieldName("name")
		if id == nil {
			return "", "", false
		}
		name = w.propertyName(id)
		if name == "" {
			return "", "", false
		}
		if parent != nil && parent.Type() == "object" {
			return name, types.TypeObjectMethod, true
		}
		return name, types.TypeMethod, true
	}

	// Function expressions are named by what they are bound to
	if parent == nil {
		return "", "", false
	}
	typ = types.TypeFunction
	if n.Type() == "arrow_function" {
		typ = types.TypeArrow
	}

	switch parent.Type() {
	case "variable_declarator":
		if id := parent.ChildByFieldName("name"); id != nil && id.Type() == "identifier" {
			return id.Content(w.src), typ, true
		}
	case "pair":
		if key := parent.ChildByFieldName("key"); key != nil {
			if name = w.propertyName(key); name != "" {
				return name, types.TypeObjectMethod, true
			}
		}
	}

	// Named function expression: const x = function inner() {} is named by x
	// above; a bare `(function inner() {})` keeps its own name.
	if id := n.ChildByFieldName("name"); id != nil && id.Type() == "identifier" {
		return id.Content(w.src), typ, true
	}
	return "", "", false
}

// propertyName returns a usable key name; computed keys are rejected
func (w *jsWalker) propertyName(n *sitter.Node) string {
	switch n.Type() {
	case "property_identifier", "identifier", "private_property_identifier":
		return n.Content(w.src)
	case "string":
		return strings.Trim(n.Content(w.src), "'\"`")
	}
	return ""
}

// function builds a record for n when it is a named function
func (w *jsWalker) function(n *sitter.Node) (types.Function, bool) {
	if !isFunctionNode(n) {
		return types.Function{}, false
	}
	name, typ, ok := w.describe(n)
	if !ok || !types.ValidName(name) {
		return types.Function{}, false
	}

	return types.Function{
		Name:      name,
		File:      w.path,
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		Params:    w.params(n),
		Async:     hasChild(n, "async"),
		Exported:  w.exported(n),
		Type:      typ,
		Calls:     w.calls(n.ChildByFieldName("body")),
	}, true
}

// exported reports whether the declaration is part of an export statement
func (w *jsWalker) exported(n *sitter.Node) bool {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Type() {
		case "export_statement":
			return true
		case "variable_declarator", "lexical_declaration", "variable_declaration",
			"class_body", "class_declaration", "class":
			continue
		default:
			return false
		}
	}
	return false
}

func hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

// params returns parameter descriptors. Destructuring patterns become
// placeholder tokens and rest parameters keep their name behind "...".
func (w *jsWalker) params(n *sitter.Node) []string {
	params := make([]string, 0)

	// Single unparenthesised arrow parameter: x => x + 1
	if single := n.ChildByFieldName("parameter"); single != nil {
		return append(params, w.param(single))
	}

	list := n.ChildByFieldName("parameters")
	if list == nil {
		return params
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if desc := w.param(child); desc != "" {
			params = append(params, desc)
		}
	}
	return params
}

func (w *jsWalker) param(n *sitter.Node) string {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return n.Content(w.src)
	case "this":
		return "this"
	case "object_pattern":
		return types.ParamObjectPattern
	case "array_pattern":
		return types.ParamArrayPattern
	case "assignment_pattern":
		if left := n.ChildByFieldName("left"); left != nil {
			return w.param(left)
		}
	case "rest_pattern":
		if n.NamedChildCount() > 0 {
			return types.RestPrefix + w.param(n.NamedChild(0))
		}
		return types.RestPrefix
	case "required_parameter", "optional_parameter":
		// TypeScript wraps the pattern with its annotation
		if pattern := n.ChildByFieldName("pattern"); pattern != nil {
			return w.param(pattern)
		}
	}
	return ""
}

// calls collects called identifiers under body without descending into
// nested named functions, which are recorded on their own
func (w *jsWalker) calls(body *sitter.Node) []string {
	calls := newCallSet()
	if body == nil {
		return calls.list()
	}

	stack := []*sitter.Node{body}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n != body && isFunctionNode(n) {
			if _, _, named := w.describe(n); named {
				continue
			}
		}

		switch n.Type() {
		case "call_expression":
			calls.add(w.calleeName(n.ChildByFieldName("function")))
		case "new_expression":
			calls.add(w.calleeName(n.ChildByFieldName("constructor")))
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.NamedChild(i))
		}
	}
	return calls.list()
}

// calleeName reduces a callee expression to a plain identifier:
// foo() -> foo, obj.method() -> method, this.#priv() -> #priv
func (w *jsWalker) calleeName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(w.src)
	case "member_expression":
		if prop := n.ChildByFieldName("property"); prop != nil {
			return prop.Content(w.src)
		}
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return w.calleeName(n.NamedChild(0))
		}
	}
	return ""
}
