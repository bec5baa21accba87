package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreDirs are directory names never descended into
var DefaultIgnoreDirs = []string{"node_modules", "vendor", "dist", "build", "coverage"}

// DefaultMaxFileSize skips generated bundles and other oversized files
const DefaultMaxFileSize = 1 << 20

// WalkOptions filters the files a walk yields
type WalkOptions struct {
	// Extensions limits candidates to these suffixes (".js", ".go"). Empty
	// means every file is a candidate and parser selection decides.
	Extensions []string
	// MaxFileSize skips larger files. Zero or less disables the limit.
	MaxFileSize int64
	// IgnoreDirs are directory names to skip. Hidden directories are always skipped.
	IgnoreDirs []string
	// UseGitignore applies the root .gitignore
	UseGitignore bool
}

// DefaultWalkOptions returns the walker defaults
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		MaxFileSize:  DefaultMaxFileSize,
		IgnoreDirs:   DefaultIgnoreDirs,
		UseGitignore: true,
	}
}

// Walker discovers candidate source files under a root
type Walker struct {
	opts       WalkOptions
	ignoreDirs map[string]bool
	extensions map[string]bool
}

// NewWalker creates a walker with opts
func NewWalker(opts WalkOptions) *Walker {
	w := &Walker{
		opts:       opts,
		ignoreDirs: make(map[string]bool),
		extensions: make(map[string]bool),
	}
	for _, d := range opts.IgnoreDirs {
		w.ignoreDirs[d] = true
	}
	for _, e := range opts.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		w.extensions[e] = true
	}
	return w
}

// Walk returns candidate files under root in lexical order. A root that is
// a regular file is returned as-is when it passes the filters.
func (w *Walker) Walk(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if w.accept(root, info.Size()) {
			return []string{root}, nil
		}
		return []string{}, nil
	}

	var gitignore *ignore.GitIgnore
	if w.opts.UseGitignore {
		gitignore, err = ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	files := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			// Skip hidden directories and configured names
			if strings.HasPrefix(d.Name(), ".") || w.ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			if gitignore != nil && gitignore.MatchesPath(filepath.ToSlash(rel)+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if gitignore != nil && gitignore.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if w.accept(path, info.Size()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (w *Walker) accept(path string, size int64) bool {
	if w.opts.MaxFileSize > 0 && size > w.opts.MaxFileSize {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}
