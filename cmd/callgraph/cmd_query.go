package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/storage"
	"github.com/dshills/callgraph-mcp/internal/traversal"
	"github.com/dshills/callgraph-mcp/pkg/types"
)

var (
	queryDepth int
	listLimit  int
	listCursor string
)

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a function's record and its direct edges",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var depsCmd = &cobra.Command{
	Use:   "deps NAME",
	Short: "Show the tree of functions NAME transitively calls",
	Long: `Show the tree of functions reachable from NAME through calls.

Each function appears once, under the first branch that reaches it, so
cycles terminate. --depth bounds the number of hops.

Examples:
  callgraph deps main
  callgraph deps --depth 2 handleRequest`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

var affectedCmd = &cobra.Command{
	Use:   "affected NAME",
	Short: "List every function that transitively calls NAME",
	Args:  cobra.ExactArgs(1),
	RunE:  runAffected,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed function names",
	Long: `List indexed function names.

Without --limit every name is printed, sorted. With --limit one page is
printed followed by the cursor for the next page; a cursor of "0" means
the listing is complete.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file and function counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	depsCmd.Flags().IntVar(&queryDepth, "depth", 0, "Maximum traversal depth (0 = configured default)")
	affectedCmd.Flags().IntVar(&queryDepth, "depth", 0, "Maximum traversal depth (0 = configured default)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Keys to scan per page (0 = list everything)")
	listCmd.Flags().StringVar(&listCursor, "cursor", storage.CursorStart, "Cursor returned by the previous page")
}

func depth() int {
	if queryDepth > 0 {
		return queryDepth
	}
	return cfg.Traversal.DefaultDepth
}

func runShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withGraph(cmd.Context(), func(g *graph.Store) error {
		ctx := cmd.Context()
		fn, err := g.GetFunction(ctx, name)
		if err != nil {
			return err
		}
		calls, err := g.GetFunctionCalls(ctx, name)
		if err != nil {
			return err
		}
		callers, err := g.GetFunctionCallers(ctx, name)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{
				"function": fn,
				"calls":    calls,
				"callers":  callers,
			})
		}
		printFunction(out, fn)
		fmt.Fprintf(out, "Calls:     %s\n", joinOrNone(calls))
		fmt.Fprintf(out, "Called by: %s\n", joinOrNone(callers))
		return nil
	})
}

func runDeps(cmd *cobra.Command, args []string) error {
	return withGraph(cmd.Context(), func(g *graph.Store) error {
		tree, err := traversal.New(g).Dependencies(cmd.Context(), args[0], depth())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), tree)
		}
		printTree(cmd.OutOrStdout(), tree)
		return nil
	})
}

func runAffected(cmd *cobra.Command, args []string) error {
	return withGraph(cmd.Context(), func(g *graph.Store) error {
		affected, err := traversal.New(g).Affected(cmd.Context(), args[0], depth())
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), affected)
		}
		for _, name := range affected {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withGraph(cmd.Context(), func(g *graph.Store) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if listLimit <= 0 {
			names, err := g.ListFunctions(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, names)
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		next, names, err := g.GetAllFunctions(ctx, listCursor, listLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{"cursor": next, "functions": names})
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		fmt.Fprintf(out, "cursor: %s\n", next)
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	return withGraph(cmd.Context(), func(g *graph.Store) error {
		stats, err := g.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{
				"files":     stats.FileCount,
				"functions": stats.FunctionCount,
				"timestamp": stats.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		fmt.Fprintf(out, "Files:     %d\n", stats.FileCount)
		fmt.Fprintf(out, "Functions: %d\n", stats.FunctionCount)
		return nil
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFunction(w io.Writer, fn *types.Function) {
	async := ""
	if fn.Async {
		async = "async "
	}
	exported := ""
	if fn.Exported {
		exported = " (exported)"
	}
	fmt.Fprintf(w, "%s%s %s(%s)%s\n", async, fn.Type, fn.Name, strings.Join(fn.Params, ", "), exported)
	fmt.Fprintf(w, "  %s:%d-%d\n", fn.File, fn.StartLine, fn.EndLine)
	fmt.Fprintf(w, "  indexed %s\n", fn.IndexedAt.Format(time.RFC3339))
}

// printTree writes one indented line per node
func printTree(w io.Writer, n *traversal.Node) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth), n.Name)
	for _, c := range n.Children {
		printTree(w, c)
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
