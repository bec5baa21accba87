package indexer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel
}

func TestWalker_DefaultFilters(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "src/app.js", "function a() {}")
	createTestFile(t, root, "src/lib/util.ts", "export function u() {}")
	createTestFile(t, root, "main.go", "package main")
	createTestFile(t, root, "node_modules/dep/index.js", "function d() {}")
	createTestFile(t, root, "vendor/x/x.go", "package x")
	createTestFile(t, root, ".git/hooks/pre-commit.js", "function h() {}")
	createTestFile(t, root, "dist/bundle.js", "function b() {}")

	files, err := NewWalker(DefaultWalkOptions()).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "src/app.js", "src/lib/util.ts"}, relPaths(t, root, files))
}

func TestWalker_Gitignore(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, ".gitignore", "generated/\n*.min.js\n")
	createTestFile(t, root, "app.js", "function a() {}")
	createTestFile(t, root, "app.min.js", "function a(){}")
	createTestFile(t, root, "generated/api.js", "function g() {}")

	files, err := NewWalker(DefaultWalkOptions()).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{".gitignore", "app.js"}, relPaths(t, root, files))

	opts := DefaultWalkOptions()
	opts.UseGitignore = false
	files, err = NewWalker(opts).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestWalker_Extensions(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "a.js", "")
	createTestFile(t, root, "b.TS", "")
	createTestFile(t, root, "c.go", "")

	opts := DefaultWalkOptions()
	opts.Extensions = []string{"js", ".ts"}
	files, err := NewWalker(opts).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.TS"}, relPaths(t, root, files))
}

func TestWalker_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "small.js", "function s() {}")
	createTestFile(t, root, "large.js", strings.Repeat("x", 2048))

	opts := DefaultWalkOptions()
	opts.MaxFileSize = 1024
	files, err := NewWalker(opts).Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.js"}, relPaths(t, root, files))
}

func TestWalker_FileRoot(t *testing.T) {
	root := t.TempDir()
	path := createTestFile(t, root, "only.js", "function o() {}")

	files, err := NewWalker(DefaultWalkOptions()).Walk(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)

	opts := DefaultWalkOptions()
	opts.Extensions = []string{".go"}
	files, err = NewWalker(opts).Walk(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(DefaultWalkOptions()).Walk(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
