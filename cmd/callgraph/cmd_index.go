package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/callgraph-mcp/internal/graph"
	"github.com/dshills/callgraph-mcp/internal/indexer"
	"github.com/dshills/callgraph-mcp/internal/telemetry"
)

var (
	indexForce    bool
	indexNoDelete bool
	indexBatch    bool
	indexPrune    bool
)

var indexCmd = &cobra.Command{
	Use:   "index [PATH]",
	Short: "Index a source tree or a single file",
	Long: `Walk PATH (default ".") and index every supported file into the graph.

Files whose fingerprint is unchanged since the last run are skipped. A
changed file has its previous functions and edges removed before the new
ones are written.

Examples:
  callgraph index ./src
  callgraph index --force --batch .
  callgraph index --prune ~/code/app`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-index files even when unchanged")
	indexCmd.Flags().BoolVar(&indexNoDelete, "no-delete", false, "Keep a changed file's previous graph data")
	indexCmd.Flags().BoolVar(&indexBatch, "batch", false, "Write each file's functions in one submission")
	indexCmd.Flags().BoolVar(&indexPrune, "prune", false, "Remove data for files that no longer exist")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	opts := indexer.Options{
		Force:    indexForce,
		NoDelete: indexNoDelete,
		Batch:    indexBatch || cfg.Index.Batch,
		Prune:    indexPrune || cfg.Index.Prune,
	}

	return withGraph(cmd.Context(), func(g *graph.Store) error {
		orch := indexer.NewOrchestrator(g, indexer.Config{
			Walk:    cfg.WalkOptions(),
			Logger:  logger,
			Metrics: telemetry.NewMetrics(nil),
		})

		stats, err := orch.IndexProject(cmd.Context(), root, opts)
		if stats != nil {
			if jsonOutput {
				if jerr := writeJSON(cmd.OutOrStdout(), stats); jerr != nil {
					return jerr
				}
			} else {
				printStatistics(cmd.OutOrStdout(), stats)
			}
		}
		return err
	})
}

func printStatistics(w io.Writer, stats *indexer.Statistics) {
	fmt.Fprintf(w, "Run %s\n", stats.RunID)
	fmt.Fprintf(w, "Files: %d indexed, %d skipped, %d failed", stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed)
	if stats.FilesPruned > 0 {
		fmt.Fprintf(w, ", %d pruned", stats.FilesPruned)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Functions: %d indexed, %d failed\n", stats.FunctionsIndexed, stats.FunctionErrors)
	fmt.Fprintf(w, "Duration: %v\n", stats.Duration)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
}
