package types

import (
	"strings"
	"time"
)

// FunctionType is the syntactic form a function was declared with
type FunctionType string

const (
	TypeFunction     FunctionType = "function"
	TypeMethod       FunctionType = "method"
	TypeArrow        FunctionType = "arrow"
	TypeObjectMethod FunctionType = "object-method"
)

// Placeholder parameter tokens. Destructured parameters are not expanded;
// rest parameters keep their name behind RestPrefix.
const (
	ParamObjectPattern = "{...}"
	ParamArrayPattern  = "[...]"
	RestPrefix         = "..."
)

// Function is one indexed function record. Name is a global key across the
// whole corpus: two files defining the same name share one record and the
// last one indexed wins.
type Function struct {
	// Identification
	Name string `json:"name"`
	File string `json:"file"`

	// Location
	StartLine int `json:"line_start"`
	EndLine   int `json:"line_end"`

	// Signature
	Params   []string     `json:"params"`
	Async    bool         `json:"async"`
	Exported bool         `json:"exported"`
	Type     FunctionType `json:"type"`

	IndexedAt time.Time `json:"indexed_at"`

	// Calls holds the plain identifiers this function calls. It is persisted
	// as call edges, not on the record itself.
	Calls []string `json:"calls,omitempty"`
}

// ValidateType checks if the function type is one of the known forms
func (f *Function) ValidateType() error {
	switch f.Type {
	case TypeFunction, TypeMethod, TypeArrow, TypeObjectMethod:
		return nil
	default:
		return ErrInvalidFunctionType
	}
}

// Validate performs validation of the function record
func (f *Function) Validate() error {
	if f.Name == "" {
		return ErrEmptyName
	}

	// ':' separates a function key from its edge-set suffixes
	if strings.Contains(f.Name, ":") {
		return ErrInvalidName
	}

	if f.File == "" {
		return ErrMissingFile
	}

	if err := f.ValidateType(); err != nil {
		return err
	}

	if f.StartLine <= 0 || f.EndLine <= 0 || f.StartLine > f.EndLine {
		return ErrInvalidLineRange
	}

	return nil
}

// UniqueCalls returns Calls without duplicates, keeping first-seen order
func (f *Function) UniqueCalls() []string {
	seen := make(map[string]bool, len(f.Calls))
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ValidName reports whether name can be used as a function key
func ValidName(name string) bool {
	return name != "" && !strings.Contains(name, ":")
}
