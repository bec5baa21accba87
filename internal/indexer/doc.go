// Package indexer keeps the call graph in step with a source tree.
//
// Indexer writes the parsed functions of one file. Orchestrator walks a
// directory and runs each candidate file through the per-file protocol:
//
//  1. Select a parser for the path; none means the file is skipped
//  2. Read the file
//  3. Unless forced, compare its fingerprint; unchanged files are skipped
//  4. Unless suppressed, delete the file's previous graph data
//  5. Parse and check the result's shape; a bad shape fails the file
//  6. Write functions and edges, one by one or as a single batch
//  7. Record the new fingerprint
//
// # Basic Usage
//
//	kv, _ := storage.Open(storage.Options{Path: "callgraph.db"})
//	g := graph.New(kv)
//	orch := indexer.NewOrchestrator(g, indexer.Config{
//	    Walk: indexer.DefaultWalkOptions(),
//	})
//
//	stats, err := orch.IndexProject(ctx, "/path/to/project", indexer.Options{})
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Incremental Indexing
//
// A second run over an unchanged tree performs no writes: every file is
// skipped at step 3.
//
//	stats1, _ := orch.IndexProject(ctx, root, opts)
//	// Files: 247 indexed, 0 skipped
//
//	stats2, _ := orch.IndexProject(ctx, root, opts)
//	// Files: 0 indexed, 247 skipped
//
// Options.Force re-processes every file regardless of fingerprint.
//
// # Error Handling
//
// Failures are isolated per file and per function:
//   - Unsupported and unchanged files are skips, not errors
//   - Parse failures fail the file; the run continues
//   - A failing function is counted; the rest of the file is still written
//   - A failed batch counts every function in it as failed
//
// Store unavailability is different: the run stops at once and returns
// its statistics with one error wrapping ErrStoreUnavailable.
//
// # Concurrency
//
// Files are processed one at a time in walk order, so a file's stale-data
// delete always precedes its own writes. Only one IndexProject call may run
// per Orchestrator; a second gets ErrIndexInProgress. Function names are a
// global key space, so two orchestrators indexing different trees into one
// store may overwrite each other's same-named functions.
package indexer
