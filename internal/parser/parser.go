package parser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dshills/callgraph-mcp/pkg/types"
)

// Capability is a language parser the indexer can dispatch to
type Capability interface {
	// CanHandle reports whether the parser understands the file at path
	CanHandle(path string) bool
	// Extract returns the functions defined in content. Syntax errors are
	// recorded on the result; an error return means nothing usable came out.
	Extract(ctx context.Context, path string, content []byte) (*types.ParseResult, error)
}

// Registry selects a parser for a file. The first registered parser that
// can handle the path wins.
type Registry struct {
	caps []Capability
}

// NewRegistry creates a registry holding caps in priority order
func NewRegistry(caps ...Capability) *Registry {
	return &Registry{caps: caps}
}

// DefaultRegistry returns a registry with the Go and JavaScript/TypeScript parsers
func DefaultRegistry() *Registry {
	return NewRegistry(NewGoParser(), NewJavaScriptParser())
}

// Register appends a parser at the lowest priority
func (r *Registry) Register(c Capability) {
	r.caps = append(r.caps, c)
}

// For returns the parser for path, or nil if none matches
func (r *Registry) For(path string) Capability {
	for _, c := range r.caps {
		if c.CanHandle(path) {
			return c
		}
	}
	return nil
}

// hasExtension reports whether path ends in one of exts (case-insensitive)
func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// callSet collects call names once each, in first-seen order
type callSet struct {
	seen  map[string]bool
	names []string
}

func newCallSet() *callSet {
	return &callSet{seen: make(map[string]bool)}
}

func (c *callSet) add(name string) {
	if !types.ValidName(name) || c.seen[name] {
		return
	}
	c.seen[name] = true
	c.names = append(c.names, name)
}

func (c *callSet) list() []string {
	if len(c.names) == 0 {
		return []string{}
	}
	return c.names
}
