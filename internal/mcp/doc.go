// Package mcp implements the Model Context Protocol (MCP) server for callgraph.
//
// The MCP server exposes six tools to AI coding assistants:
//   - index_codebase: Index a source tree into the call graph
//   - get_function: Look up one function and its direct edges
//   - get_dependencies: Tree of functions reachable from a function
//   - get_affected: Every function that transitively calls a function
//   - list_functions: Page through indexed function names
//   - get_status: Graph statistics and indexing state
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr; stdout carries only protocol messages.
//
// # Basic Usage
//
//	callgraph serve
//
// # Tool: index_codebase
//
//	Request:
//	{
//	  "name": "index_codebase",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "force_reindex": false,
//	    "batch": false,
//	    "prune": true
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "run_id": "6f1c...",
//	  "files_indexed": 12,
//	  "files_skipped": 230,
//	  "files_failed": 0,
//	  "functions_indexed": 311,
//	  "duration_ms": 420
//	}
//
// # Tool: get_dependencies
//
//	Request:
//	{
//	  "name": "get_dependencies",
//	  "arguments": {"name": "main", "max_depth": 3}
//	}
//
//	Response:
//	{
//	  "name": "main",
//	  "count": 2,
//	  "tree": {
//	    "name": "main", "depth": 0,
//	    "children": [{"name": "serve", "depth": 1, "children": [{"name": "handle", "depth": 2}]}]
//	  }
//	}
//
// A name is listed once even when several branches reach it. get_affected
// returns a flat sorted list instead of a tree.
//
// # Error Codes
//
//	-32602: Invalid parameters (missing name, bad path, max_depth < 1, bad cursor)
//	-32603: Internal error
//	-32001: Graph store unavailable
//	-32002: Indexing already in progress
//	-32003: Function not found
package mcp
