// Package traversal answers depth-bounded forward and reverse walks over the
// call graph. Both walks keep one visited set for the whole traversal, so
// they terminate on cyclic graphs and never revisit a name.
package traversal

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDepth is returned when maxDepth is less than 1
var ErrInvalidDepth = errors.New("max depth must be at least 1")

// EdgeReader reads the two edge sets of a function
type EdgeReader interface {
	GetFunctionCalls(ctx context.Context, name string) ([]string, error)
	GetFunctionCallers(ctx context.Context, name string) ([]string, error)
}

// Node is one function in a dependency tree
type Node struct {
	Name     string  `json:"name"`
	Depth    int     `json:"depth"`
	Children []*Node `json:"children,omitempty"`
}

// Size returns the number of nodes in the tree rooted at n
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// Names returns every name in the tree in depth-first order
func (n *Node) Names() []string {
	var names []string
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		names = append(names, cur.Name)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return names
}

// Walker runs traversals against an edge reader
type Walker struct {
	edges EdgeReader
}

// New creates a walker over edges
func New(edges EdgeReader) *Walker {
	return &Walker{edges: edges}
}

type frame struct {
	node   *Node
	parent *Node
}

// Dependencies builds the tree of functions transitively called by name.
// A name appears at most once, under whichever branch reaches it first;
// nodes at maxDepth are not expanded. Sibling order follows the store's set
// order and must not be relied on. A name with no edges, or no record at
// all, yields a root with no children.
func (w *Walker) Dependencies(ctx context.Context, name string, maxDepth int) (*Node, error) {
	if maxDepth < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}

	root := &Node{Name: name}
	visited := map[string]bool{}
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[f.node.Name] {
			continue
		}
		visited[f.node.Name] = true
		if f.parent != nil {
			f.parent.Children = append(f.parent.Children, f.node)
		}

		if f.node.Depth >= maxDepth {
			continue
		}
		calls, err := w.edges.GetFunctionCalls(ctx, f.node.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read calls of %s: %w", f.node.Name, err)
		}
		// Push in reverse so the first callee is expanded first
		for i := len(calls) - 1; i >= 0; i-- {
			if visited[calls[i]] {
				continue
			}
			stack = append(stack, frame{
				node:   &Node{Name: calls[i], Depth: f.node.Depth + 1},
				parent: f.node,
			})
		}
	}

	return root, nil
}

// Affected returns every function that transitively calls name within
// maxDepth hops, sorted, excluding name itself.
func (w *Walker) Affected(ctx context.Context, name string, maxDepth int) ([]string, error) {
	if maxDepth < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}

	visited := map[string]bool{name: true}
	frontier := []string{name}
	affected := make([]string, 0)

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			callers, err := w.edges.GetFunctionCallers(ctx, current)
			if err != nil {
				return nil, fmt.Errorf("failed to read callers of %s: %w", current, err)
			}
			for _, caller := range callers {
				if visited[caller] {
					continue
				}
				visited[caller] = true
				affected = append(affected, caller)
				next = append(next, caller)
			}
		}
		frontier = next
	}

	sort.Strings(affected)
	return affected, nil
}
