package linker

import (
	"errors"
	"fmt"
)

// ErrUnresolvedExport is wrapped by every UnresolvedExportError.
var ErrUnresolvedExport = errors.New("unresolved export")

// UnresolvedExportError reports an imported name the target module does not export.
type UnresolvedExportError struct {
	Importer  string
	Specifier string
	Module    string
	Name      string
	Line      int
	Column    int

	// Suggestion is a close export name, when one exists.
	Suggestion string
}

// Error implements the error interface.
func (e *UnresolvedExportError) Error() string {
	loc := e.Importer
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Importer, e.Line, e.Column)
	}

	msg := fmt.Sprintf("%s: %q (resolved to %s) has no export named %q", loc, e.Specifier, e.Module, e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}

	return msg
}

// Unwrap returns [ErrUnresolvedExport].
func (e *UnresolvedExportError) Unwrap() error {
	return ErrUnresolvedExport
}
