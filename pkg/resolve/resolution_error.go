package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors wrapped by the typed resolution errors.
var (
	// ErrUnresolved is wrapped by every ResolutionError.
	ErrUnresolved = errors.New("unresolved import")
	// ErrUnsupportedSpecifier is wrapped by every UnsupportedSpecifierError.
	ErrUnsupportedSpecifier = errors.New("unsupported specifier")
)

// ResolutionError reports a specifier that matches no file table key. An
// empty Importer means the entry itself is missing.
type ResolutionError struct {
	Importer   string
	Specifier  string
	Line       int
	Column     int
	Candidates []string

	// Suggestion is an existing key close to the specifier, when one exists.
	Suggestion string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	hint := ""
	if e.Suggestion != "" {
		hint = fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}

	if e.Importer == "" {
		return fmt.Sprintf("entry %q not found in file table%s", e.Specifier, hint)
	}

	loc := e.Importer
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Importer, e.Line, e.Column)
	}

	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%s: cannot resolve %q%s", loc, e.Specifier, hint)
	}

	return fmt.Sprintf("%s: cannot resolve %q (tried %s)%s", loc, e.Specifier, strings.Join(e.Candidates, ", "), hint)
}

// Unwrap returns [ErrUnresolved].
func (e *ResolutionError) Unwrap() error {
	return ErrUnresolved
}

// UnsupportedSpecifierError reports a bare specifier such as "lodash".
type UnsupportedSpecifierError struct {
	Importer  string
	Specifier string
	Line      int
	Column    int
}

// Error implements the error interface.
func (e *UnsupportedSpecifierError) Error() string {
	loc := e.Importer
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Importer, e.Line, e.Column)
	}

	return fmt.Sprintf("%s: bare specifier %q is not supported; use a relative path", loc, e.Specifier)
}

// Unwrap returns [ErrUnsupportedSpecifier].
func (e *UnsupportedSpecifierError) Unwrap() error {
	return ErrUnsupportedSpecifier
}
