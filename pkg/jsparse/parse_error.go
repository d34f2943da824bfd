package jsparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is the sentinel wrapped by every [ParseError].
var ErrSyntax = errors.New("syntax error")

// ParseError reports source that cannot be lexed or is outside the supported
// module subset. Line and Column are 1-based; Column counts bytes.
type ParseError struct {
	Path   string
	Offset int
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}

	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
}

// Unwrap returns [ErrSyntax] so callers can match any parse failure with errors.Is.
func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

// NewParseError builds a ParseError at offset within src.
func NewParseError(path, src string, offset int, format string, args ...any) *ParseError {
	line, col := Position(src, offset)

	return &ParseError{
		Path:   path,
		Offset: offset,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

// Position converts a byte offset into a 1-based line and column.
func Position(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}

	if offset < 0 {
		offset = 0
	}

	prefix := src[:offset]
	line = strings.Count(prefix, "\n") + 1
	col = offset - strings.LastIndexByte(prefix, '\n')

	return line, col
}
