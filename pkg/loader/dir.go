// Package loader reads bundle inputs from disk: a directory tree of
// JavaScript sources or a JSON manifest.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/jsbundle/pkg/safeconv"
	"github.com/Sumatoshi-tech/jsbundle/pkg/textutil"
)

// javaScript is the enry language name of accepted sources.
const javaScript = "JavaScript"

var (
	// ErrFileTooLarge is returned when a source exceeds Options.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBinaryFile is returned when a .js file holds binary data.
	ErrBinaryFile = errors.New("binary file")
)

// Options controls FromDir.
type Options struct {
	// MaxFileSize rejects larger sources. Zero means no limit.
	MaxFileSize uint64

	// IncludeVendor keeps files enry classifies as vendored, such as
	// node_modules or minified bundles.
	IncludeVendor bool
}

// FromDir collects every JavaScript file under root. Keys are slash
// separated and relative to root. Hidden directories are skipped.
func FromDir(root string, opts Options) (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			if rel != "." && !opts.IncludeVendor && enry.IsVendor(rel+"/") {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || (!opts.IncludeVendor && enry.IsVendor(rel)) {
			return nil
		}

		return readSource(files, p, rel, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}

	return files, nil
}

func readSource(files map[string]string, p, rel string, opts Options) error {
	if enry.GetLanguage(filepath.Base(p), nil) != javaScript {
		return nil
	}

	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	size := safeconv.Int64ToUint64(info.Size())
	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		return fmt.Errorf("%w: %s is %s, limit %s", ErrFileTooLarge, rel,
			humanize.IBytes(size), humanize.IBytes(opts.MaxFileSize))
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}

	if textutil.IsBinary(data) {
		return fmt.Errorf("%w: %s", ErrBinaryFile, rel)
	}

	files[rel] = string(data)

	return nil
}

// ParseSize parses a human size such as "2 MiB" or "512kB". An empty
// string means no limit.
func ParseSize(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}

	return n, nil
}
