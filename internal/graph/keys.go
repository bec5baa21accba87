package graph

import "strings"

// Key layout:
//
//	function:<name>            hash  function record
//	function:<name>:calls      set   callees of <name>
//	function:<name>:called_by  set   callers of <name>
//	file:hashes                hash  path -> fingerprint
//	file:<path>                hash  indexed_at
//
// Function names never contain ':', so a function record key is exactly the
// "function:" prefix followed by a colon-free suffix.
const (
	functionPrefix = "function:"
	callsSuffix    = ":calls"
	calledBySuffix = ":called_by"
	filePrefix     = "file:"
	fileHashesKey  = "file:hashes"
)

// Function record fields
const (
	fieldFile      = "file"
	fieldLineStart = "line_start"
	fieldLineEnd   = "line_end"
	fieldParams    = "params"
	fieldAsync     = "async"
	fieldExported  = "exported"
	fieldType      = "type"
	fieldIndexedAt = "indexed_at"
)

// FunctionKey returns the hash key of a function record
func FunctionKey(name string) string {
	return functionPrefix + name
}

// CallsKey returns the key of a function's outgoing call set
func CallsKey(name string) string {
	return functionPrefix + name + callsSuffix
}

// CalledByKey returns the key of a function's incoming caller set
func CalledByKey(name string) string {
	return functionPrefix + name + calledBySuffix
}

// FileKey returns the key of a file's metadata hash
func FileKey(path string) string {
	return filePrefix + path
}

// functionName extracts the name from a function record key. Edge-set keys
// and anything outside the function namespace report false.
func functionName(key string) (string, bool) {
	if !strings.HasPrefix(key, functionPrefix) {
		return "", false
	}
	name := key[len(functionPrefix):]
	if name == "" || strings.Contains(name, ":") {
		return "", false
	}
	return name, true
}
