package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validFunction() Function {
	return Function{
		Name:      "a",
		File:      "a.js",
		StartLine: 1,
		EndLine:   3,
		Type:      TypeFunction,
	}
}

func TestFunction_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Function)
		want   error
	}{
		{"valid", func(f *Function) {}, nil},
		{"empty name", func(f *Function) { f.Name = "" }, ErrEmptyName},
		{"colon in name", func(f *Function) { f.Name = "a:calls" }, ErrInvalidName},
		{"missing file", func(f *Function) { f.File = "" }, ErrMissingFile},
		{"unknown type", func(f *Function) { f.Type = "lambda" }, ErrInvalidFunctionType},
		{"zero start", func(f *Function) { f.StartLine = 0 }, ErrInvalidLineRange},
		{"reversed range", func(f *Function) { f.StartLine = 5; f.EndLine = 2 }, ErrInvalidLineRange},
		{"single line", func(f *Function) { f.EndLine = 1 }, nil},
		{"object method", func(f *Function) { f.Type = TypeObjectMethod }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := validFunction()
			tt.mutate(&fn)
			err := fn.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFunction_UniqueCalls(t *testing.T) {
	fn := Function{Calls: []string{"b", "c", "b", "", "a", "c"}}
	assert.Equal(t, []string{"b", "c", "a"}, fn.UniqueCalls())

	empty := Function{}
	assert.Empty(t, empty.UniqueCalls())
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("handler"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("x:called_by"))
}

func TestParseResult_Validate(t *testing.T) {
	var nilResult *ParseResult
	assert.ErrorIs(t, nilResult.Validate(), ErrNilParseResult)

	assert.ErrorIs(t, (&ParseResult{}).Validate(), ErrNilFunctions)
	assert.NoError(t, (&ParseResult{Functions: []Function{}}).Validate())
}

func TestParseResult_Errors(t *testing.T) {
	pr := &ParseResult{Functions: []Function{}}
	assert.False(t, pr.HasErrors())

	pr.AddError("a.js", 3, 7, "unexpected token")
	assert.True(t, pr.HasErrors())
	assert.Equal(t, "a.js:3:7: unexpected token", pr.Errors[0].Error())
}
