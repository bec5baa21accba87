//go:build !sqlite_cgo
// +build !sqlite_cgo

package storage

// This file is compiled unless the sqlite_cgo tag is set.
// It uses a pure Go SQLite implementation, so no C compiler is required
// for the sqlite engine (the tree-sitter parsers still need CGO).
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
