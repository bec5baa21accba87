package types

import "fmt"

// ParseResult represents the output of extracting functions from a source file
type ParseResult struct {
	// Extracted data. A parser that found nothing returns an empty, non-nil
	// slice; a nil slice means the parser produced no usable result.
	Functions []Function
	Language  string

	// Errors encountered during parsing
	Errors []ParseError
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	if pe.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", pe.File, pe.Line, pe.Column, pe.Message)
	}
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}

// Validate checks the basic shape of a parse result: it must exist and carry
// a function list, even an empty one. Individual records are not checked here.
func (pr *ParseResult) Validate() error {
	if pr == nil {
		return ErrNilParseResult
	}
	if pr.Functions == nil {
		return ErrNilFunctions
	}
	return nil
}
