// Package resolve maps import specifiers to file table keys.
package resolve

import (
	"path"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/jsbundle/pkg/suggest"
)

// Default resolution settings.
var (
	// DefaultExtensions are appended to a specifier that has no exact match.
	DefaultExtensions = []string{".js"}
	// DefaultIndexFiles are tried inside a specifier naming a directory.
	DefaultIndexFiles = []string{"index.js"}
)

// Options controls candidate generation.
type Options struct {
	Extensions []string
	IndexFiles []string
}

// DefaultOptions returns the standard ".js" then "/index.js" behavior.
func DefaultOptions() Options {
	return Options{
		Extensions: append([]string(nil), DefaultExtensions...),
		IndexFiles: append([]string(nil), DefaultIndexFiles...),
	}
}

// Lister exposes the keys of a file table.
type Lister interface {
	Paths() []string
}

// Resolver resolves specifiers against one snapshot of file table keys.
type Resolver struct {
	opts Options

	// keys maps a normalized path to the file table's own key.
	keys map[string]string
}

// New indexes the keys of files. Keys that differ only by a leading "./"
// or redundant separators name the same file; the lexically smallest wins.
func New(files Lister, opts Options) *Resolver {
	if opts.Extensions == nil {
		opts.Extensions = DefaultExtensions
	}

	if opts.IndexFiles == nil {
		opts.IndexFiles = DefaultIndexFiles
	}

	r := &Resolver{opts: opts, keys: make(map[string]string)}

	for _, key := range files.Paths() {
		norm := Normalize(key)
		if _, taken := r.keys[norm]; !taken {
			r.keys[norm] = key
		}
	}

	return r
}

// Normalize cleans p so equivalent spellings of a key compare equal.
func Normalize(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// join resolves spec against the importer's directory the way a URL path is
// resolved: ".." segments stop at the root of the file table.
func join(importer, spec string) string {
	return strings.TrimPrefix(path.Join("/", path.Dir(Normalize(importer)), spec), "/")
}

// IsRelative reports whether spec is resolved against the importer.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Entry returns the file table key for the entry path.
func (r *Resolver) Entry(entry string) (string, error) {
	if key, ok := r.keys[Normalize(entry)]; ok {
		return key, nil
	}

	return "", &ResolutionError{Specifier: entry, Suggestion: r.closestKey(Normalize(entry))}
}

// Resolve returns the file table key spec refers to from importer.
// Candidates are tried in a fixed order: the exact path, each extension
// appended, then each index file inside it.
func (r *Resolver) Resolve(importer, spec string) (string, error) {
	if !IsRelative(spec) {
		return "", &UnsupportedSpecifierError{Importer: importer, Specifier: spec}
	}

	candidates := r.Candidates(importer, spec)
	for _, c := range candidates {
		if key, ok := r.keys[c]; ok {
			return key, nil
		}
	}

	return "", &ResolutionError{
		Importer:   importer,
		Specifier:  spec,
		Candidates: candidates,
		Suggestion: r.closestKey(join(importer, spec)),
	}
}

// closestKey returns the file table key whose path, with any known
// extension removed, is nearest to target.
func (r *Resolver) closestKey(target string) string {
	target = r.trimExtension(target)

	norms := make([]string, 0, len(r.keys))
	for norm := range r.keys {
		norms = append(norms, norm)
	}

	sort.Strings(norms)

	stems := make([]string, 0, len(norms))
	byStem := make(map[string]string, len(norms))

	for _, norm := range norms {
		stem := r.trimExtension(norm)
		if _, taken := byStem[stem]; !taken {
			byStem[stem] = r.keys[norm]
			stems = append(stems, stem)
		}
	}

	hint, ok := suggest.Closest(target, stems)
	if !ok {
		return ""
	}

	return byStem[hint]
}

func (r *Resolver) trimExtension(p string) string {
	for _, ext := range r.opts.Extensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}

	return p
}

// Candidates lists the normalized paths Resolve tries, in priority order.
func (r *Resolver) Candidates(importer, spec string) []string {
	base := join(importer, spec)
	last := path.Base(spec)
	dirOnly := strings.HasSuffix(spec, "/") || last == "." || last == ".."

	out := make([]string, 0, 1+len(r.opts.Extensions)+len(r.opts.IndexFiles))
	if !dirOnly {
		out = append(out, base)

		for _, ext := range r.opts.Extensions {
			out = append(out, base+ext)
		}
	}

	for _, index := range r.opts.IndexFiles {
		out = append(out, path.Join(base, index))
	}

	return out
}
