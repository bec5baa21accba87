package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// MaxListLimit caps list_functions page sizes
const MaxListLimit = 1000

func nameProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func depthProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of hops to follow (defaults to the configured depth)",
		"minimum":     1,
	}
}

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index the functions and call edges of a source tree. Unchanged files are skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a project directory or a single source file",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring fingerprints",
					"default":     false,
				},
				"batch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, write each file's functions in one grouped submission",
					"default":     false,
				},
				"prune": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, remove graph data for files that no longer exist",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getFunctionTool returns the tool definition for get_function
func getFunctionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_function",
		Description: "Get a function's record together with the names it calls and the names that call it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("Function name"),
			},
			Required: []string{"name"},
		},
	}
}

// getDependenciesTool returns the tool definition for get_dependencies
func getDependenciesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_dependencies",
		Description: "Get the tree of functions reachable from a function through calls",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":      nameProperty("Function to start from"),
				"max_depth": depthProperty(),
			},
			Required: []string{"name"},
		},
	}
}

// getAffectedTool returns the tool definition for get_affected
func getAffectedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_affected",
		Description: "Get every function that directly or transitively calls a function",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":      nameProperty("Function whose callers are wanted"),
				"max_depth": depthProperty(),
			},
			Required: []string{"name"},
		},
	}
}

// listFunctionsTool returns the tool definition for list_functions
func listFunctionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_functions",
		Description: "Page through indexed function names. Pass the returned cursor back until it is \"0\".",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"cursor": map[string]interface{}{
					"type":        "string",
					"description": "Cursor from the previous page; \"0\" or empty starts over",
					"default":     "0",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Keys to scan per page",
					"default":     100,
					"minimum":     1,
					"maximum":     MaxListLimit,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query graph statistics and whether an indexing run is in progress",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
