// Package parser extracts function records and their call sites from source
// files. Parsers implement Capability and are selected through a Registry by
// file path; the first registered parser that can handle a path wins.
//
// # Basic Usage
//
//	reg := parser.DefaultRegistry()
//	p := reg.For("src/server.ts")
//	if p == nil {
//	    // unsupported file, skip it
//	}
//	result, err := p.Extract(ctx, "src/server.ts", content)
//
// # Languages
//
// GoParser uses go/ast. Functions and methods are recorded under their plain
// name; calls through selectors contribute the selected name, and builtins
// are ignored.
//
// JavaScriptParser uses tree-sitter grammars for .js/.jsx/.mjs/.cjs, .ts and
// .tsx. It records function declarations, class methods, object methods and
// function or arrow expressions bound to a variable. Destructured parameters
// are reported as "{...}" or "[...]" and rest parameters as "...name".
//
// Calls are matched by identifier only: obj.save() and other.save() both
// produce an edge to "save".
//
// # Error Handling
//
// Syntax errors are recorded on the result and extraction continues with
// whatever the parser recovered:
//
//	if result.HasErrors() {
//	    for _, parseErr := range result.Errors {
//	        fmt.Printf("Parse error: %v\n", parseErr)
//	    }
//	}
package parser
