package bundler

import (
	"errors"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
)

// Kind classifies a bundle failure for hosts that render or count errors.
type Kind string

// Failure kinds returned by [KindOf].
const (
	KindParse                Kind = "parse"
	KindResolution           Kind = "resolution"
	KindUnsupportedSpecifier Kind = "unsupported_specifier"
	KindUnresolvedExport     Kind = "unresolved_export"
	KindInternal             Kind = "internal"
)

// KindOf reports the kind of err. It returns "" for nil.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jsparse.ErrSyntax):
		return KindParse
	case errors.Is(err, resolve.ErrUnsupportedSpecifier):
		return KindUnsupportedSpecifier
	case errors.Is(err, resolve.ErrUnresolved):
		return KindResolution
	case errors.Is(err, linker.ErrUnresolvedExport):
		return KindUnresolvedExport
	default:
		return KindInternal
	}
}

// Position extracts the file and 1-based line and column an error points
// at. ok is false when err carries no location.
func Position(err error) (path string, line, column int, ok bool) {
	var perr *jsparse.ParseError
	if errors.As(err, &perr) {
		return perr.Path, perr.Line, perr.Column, true
	}

	var rerr *resolve.ResolutionError
	if errors.As(err, &rerr) && rerr.Importer != "" {
		return rerr.Importer, rerr.Line, rerr.Column, true
	}

	var uerr *resolve.UnsupportedSpecifierError
	if errors.As(err, &uerr) {
		return uerr.Importer, uerr.Line, uerr.Column, true
	}

	var xerr *linker.UnresolvedExportError
	if errors.As(err, &xerr) {
		return xerr.Importer, xerr.Line, xerr.Column, true
	}

	return "", 0, 0, false
}
