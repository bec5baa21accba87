package types

import "errors"

// Domain errors for type validation
var (
	// Function record errors
	ErrEmptyName           = errors.New("function name is required")
	ErrInvalidName         = errors.New("function name must not contain ':'")
	ErrMissingFile         = errors.New("function file is required")
	ErrInvalidLineRange    = errors.New("line range must be positive and ordered")
	ErrInvalidFunctionType = errors.New("invalid function type")

	// Parse result errors
	ErrNilParseResult = errors.New("parse result is nil")
	ErrNilFunctions   = errors.New("parse result has no function list")
)
