package parser

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	gotypes "go/types"

	"github.com/dshills/callgraph-mcp/pkg/types"
)

// GoParser extracts functions and methods from Go source using go/ast
type GoParser struct{}

// NewGoParser creates a Go parser
func NewGoParser() *GoParser {
	return &GoParser{}
}

// CanHandle implements Capability
func (p *GoParser) CanHandle(path string) bool {
	return hasExtension(path, []string{".go"})
}

// Extract parses a Go source file and returns its function records
func (p *GoParser) Extract(ctx context.Context, path string, content []byte) (*types.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &types.ParseResult{Language: "go", Functions: make([]types.Function, 0)}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if err != nil {
		// Syntax errors are non-fatal - record error but continue with partial AST
		result.AddError(path, 0, 0, fmt.Sprintf("syntax error: %v", err))
	}
	if file == nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	extractor := &funcExtractor{fset: fset, filePath: path}
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			extractor.extractFunction(fd)
		}
	}
	result.Functions = append(result.Functions, extractor.functions...)

	return result, nil
}

// funcExtractor turns function declarations into records
type funcExtractor struct {
	fset      *token.FileSet
	filePath  string
	functions []types.Function
}

// extractFunction extracts function and method declarations. Methods are
// recorded under their plain name.
func (e *funcExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	name := funcDecl.Name.Name
	if name == "_" || !types.ValidName(name) {
		return
	}

	fn := types.Function{
		Name:      name,
		File:      e.filePath,
		StartLine: e.fset.Position(funcDecl.Pos()).Line,
		EndLine:   e.fset.Position(funcDecl.End()).Line,
		Params:    e.extractParams(funcDecl.Type.Params),
		Exported:  token.IsExported(name),
		Type:      types.TypeFunction,
	}

	// Determine if this is a method or function
	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		fn.Type = types.TypeMethod
	}

	fn.Calls = e.extractCalls(funcDecl.Body)
	e.functions = append(e.functions, fn)
}

// extractParams returns parameter names; unnamed parameters become "_" and
// variadic ones carry the rest prefix
func (e *funcExtractor) extractParams(fieldList *ast.FieldList) []string {
	params := make([]string, 0)
	if fieldList == nil {
		return params
	}

	for _, field := range fieldList.List {
		prefix := ""
		if _, ok := field.Type.(*ast.Ellipsis); ok {
			prefix = types.RestPrefix
		}
		if len(field.Names) == 0 {
			params = append(params, prefix+"_")
			continue
		}
		for _, name := range field.Names {
			params = append(params, prefix+name.Name)
		}
	}
	return params
}

// extractCalls collects the identifiers called inside body. Selector calls
// contribute their final name (x.y.Foo() -> Foo); builtins and conversions
// to predeclared types are ignored.
func (e *funcExtractor) extractCalls(body *ast.BlockStmt) []string {
	calls := newCallSet()
	if body == nil {
		return calls.list()
	}

	ast.Inspect(body, func(node ast.Node) bool {
		call, ok := node.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			if gotypes.Universe.Lookup(fun.Name) == nil {
				calls.add(fun.Name)
			}
		case *ast.SelectorExpr:
			calls.add(fun.Sel.Name)
		case *ast.IndexExpr:
			// Generic instantiation: Map[int](xs)
			if ident, ok := fun.X.(*ast.Ident); ok {
				calls.add(ident.Name)
			}
		}
		return true
	})
	return calls.list()
}
