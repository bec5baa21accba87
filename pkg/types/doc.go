// Package types provides shared type definitions for the call graph indexer.
//
// # Core Types
//
// Function is one function record extracted by a language parser:
//
//	fn := types.Function{
//	    Name:      "handleRequest",
//	    File:      "src/server.js",
//	    StartLine: 12,
//	    EndLine:   40,
//	    Params:    []string{"req", "{...}", "...rest"},
//	    Async:     true,
//	    Type:      types.TypeArrow,
//	    Calls:     []string{"parseBody", "send"},
//	}
//
// Names are global keys. Two files that define the same name share a single
// record; whichever file is indexed last wins.
//
// ParseResult carries a parser's output for one file. Its Validate method is
// the shape check applied before anything is written to the graph.
//
// # Validation
//
//	if err := fn.Validate(); err != nil {
//	    return err
//	}
//
// Names must be non-empty and must not contain ':'; the graph layout uses
// ':' to separate a function key from its edge sets.
package types
