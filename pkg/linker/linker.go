// Package linker gives every module-level binding of a bundle a unique
// output identifier and rewrites statement text to use it.
package linker

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/suggest"
)

// ModuleKey names a local binding of one module.
type ModuleKey struct {
	Module string
	Local  string
}

// RenameTable maps a module binding to its output identifier.
type RenameTable map[ModuleKey]string

// Unit is one module after linking.
type Unit struct {
	Path       string
	Statements []string

	// Namespaces holds synthesized namespace objects over this module's
	// exports, emitted after its statements.
	Namespaces []string
}

// Linked is the result of [Link].
type Linked struct {
	Units []Unit

	// Renames covers every top-level declaration. Its values are pairwise
	// distinct.
	Renames RenameTable

	// Aliases maps import locals to the output identifier they refer to.
	Aliases RenameTable
}

// linker holds the state of one pass.
type linker struct {
	modules  map[string]*jsparse.Module
	resolved map[string]map[string]string
	idents   map[string][][]jsparse.Ident
	imports  map[string]map[string]jsparse.ImportRef

	reg     *registry
	renames RenameTable
	aliases RenameTable

	namespaces   map[string]string
	nsStatements map[string][]string
}

// Link assigns output identifiers for modules in order and rewrites their
// statements. resolved maps importer -> specifier -> module path and must
// cover every import of every module.
func Link(order []*jsparse.Module, resolved map[string]map[string]string) (*Linked, error) {
	l := &linker{
		modules:      make(map[string]*jsparse.Module, len(order)),
		resolved:     resolved,
		idents:       make(map[string][][]jsparse.Ident, len(order)),
		imports:      make(map[string]map[string]jsparse.ImportRef, len(order)),
		renames:      make(RenameTable),
		aliases:      make(RenameTable),
		namespaces:   make(map[string]string),
		nsStatements: make(map[string][]string),
	}

	for _, mod := range order {
		l.modules[mod.Path] = mod
		l.imports[mod.Path] = mod.ImportLocals()
	}

	reserved, err := l.collectReserved(order)
	if err != nil {
		return nil, err
	}

	l.reg = newRegistry(reserved)

	for _, mod := range order {
		for _, name := range mod.TopLevel {
			l.renames[ModuleKey{Module: mod.Path, Local: name}] = l.reg.claim(name)
		}
	}

	for _, mod := range order {
		err = l.bindImports(mod)
		if err != nil {
			return nil, err
		}
	}

	out := &Linked{Renames: l.renames, Aliases: l.aliases}

	for _, mod := range order {
		out.Units = append(out.Units, Unit{
			Path:       mod.Path,
			Statements: l.rewrite(mod),
			Namespaces: l.nsStatements[mod.Path],
		})
	}

	return out, nil
}

// collectReserved classifies every statement and returns the names that
// stay unrenamed: references that are neither top-level declarations nor
// import locals of their module.
func (l *linker) collectReserved(order []*jsparse.Module) (map[string]struct{}, error) {
	reserved := make(map[string]struct{})

	for _, mod := range order {
		perStatement := make([][]jsparse.Ident, len(mod.Statements))

		for i, st := range mod.Statements {
			ids, err := jsparse.Classify(st.Text)
			if err != nil {
				return nil, fmt.Errorf("classify %s: %w", mod.Path, err)
			}

			perStatement[i] = ids

			for _, id := range ids {
				if !id.Kind.IsReference() {
					continue
				}

				if _, imported := l.imports[mod.Path][id.Name]; imported || mod.HasTopLevel(id.Name) {
					continue
				}

				reserved[id.Name] = struct{}{}
			}
		}

		l.idents[mod.Path] = perStatement
	}

	return reserved, nil
}

// bindImports resolves every import binding of mod. Synthetic re-export
// bindings are checked too so a bad re-export fails even when unused.
func (l *linker) bindImports(mod *jsparse.Module) error {
	for _, decl := range mod.Imports {
		target := l.resolved[mod.Path][decl.Specifier]

		for _, b := range decl.Bindings {
			if b.Imported == jsparse.ImportNamespace {
				if !jsparse.IsSynthetic(b.Local) {
					l.aliases[ModuleKey{Module: mod.Path, Local: b.Local}] = l.namespace(target, b.Local)
				}

				continue
			}

			id, ok := l.resolveExport(target, b.Imported, b.Local, make(map[string]bool))
			if !ok {
				hint, _ := suggest.Closest(b.Imported, l.exportNames(target, make(map[string]bool)))

				return &UnresolvedExportError{
					Importer:   mod.Path,
					Specifier:  decl.Specifier,
					Module:     target,
					Name:       b.Imported,
					Line:       decl.Line,
					Column:     decl.Column,
					Suggestion: hint,
				}
			}

			if !jsparse.IsSynthetic(b.Local) {
				l.aliases[ModuleKey{Module: mod.Path, Local: b.Local}] = id
			}
		}
	}

	return nil
}

// resolveExport finds the output identifier behind export name of module
// modPath, following re-exports and "export *". hint names a namespace
// object if one has to be created.
func (l *linker) resolveExport(modPath, name, hint string, seen map[string]bool) (string, bool) {
	mod, ok := l.modules[modPath]
	if !ok {
		return "", false
	}

	key := modPath + "\x00" + name
	if seen[key] {
		return "", false
	}

	seen[key] = true

	if exp, found := mod.Export(name); found {
		if mod.HasTopLevel(exp.Local) {
			return l.renames[ModuleKey{Module: modPath, Local: exp.Local}], true
		}

		ref, imported := l.imports[modPath][exp.Local]
		if !imported {
			return "", false
		}

		target := l.resolved[modPath][mod.Imports[ref.Decl].Specifier]
		if ref.Binding.Imported == jsparse.ImportNamespace {
			return l.namespace(target, name), true
		}

		return l.resolveExport(target, ref.Binding.Imported, hint, seen)
	}

	if name == jsparse.ImportDefault {
		return "", false
	}

	for _, spec := range mod.StarExports {
		if id, found := l.resolveExport(l.resolved[modPath][spec], name, hint, seen); found {
			return id, true
		}
	}

	return "", false
}

// exportNames lists every name modPath exports, its own first, then names
// reached through "export *" in declaration order. default never comes from
// a star export.
func (l *linker) exportNames(modPath string, seen map[string]bool) []string {
	mod, ok := l.modules[modPath]
	if !ok || seen[modPath] {
		return nil
	}

	seen[modPath] = true

	var names []string

	have := make(map[string]bool)

	for _, e := range mod.Exports {
		names = append(names, e.Exported)
		have[e.Exported] = true
	}

	for _, spec := range mod.StarExports {
		for _, n := range l.exportNames(l.resolved[modPath][spec], seen) {
			if n == jsparse.ImportDefault || have[n] {
				continue
			}

			names = append(names, n)
			have[n] = true
		}
	}

	return names
}

// namespace returns the identifier of the namespace object for modPath,
// creating it on first use.
func (l *linker) namespace(modPath, hint string) string {
	if id, ok := l.namespaces[modPath]; ok {
		return id
	}

	base := hint
	if !jsparse.IsIdentifierName(base) || jsparse.IsReserved(base) {
		base = namespaceBase(modPath)
	}

	id := l.reg.claim(base)
	l.namespaces[modPath] = id

	var sb strings.Builder

	fmt.Fprintf(&sb, "const %s = Object.freeze({\n  __proto__: null", id)

	for _, name := range l.exportNames(modPath, make(map[string]bool)) {
		target, ok := l.resolveExport(modPath, name, name, make(map[string]bool))
		if !ok {
			continue
		}

		key := name
		if !jsparse.IsIdentifierName(key) {
			key = strconv.Quote(key)
		}

		fmt.Fprintf(&sb, ",\n  get %s() { return %s; }", key, target)
	}

	sb.WriteString("\n});")

	l.nsStatements[modPath] = append(l.nsStatements[modPath], sb.String())

	return id
}

// namespaceBase derives an identifier such as utils_ns from a module path.
func namespaceBase(modPath string) string {
	stem := strings.TrimSuffix(path.Base(modPath), path.Ext(modPath))

	var sb strings.Builder

	for i, r := range stem {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}

			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}

	return sb.String() + "_ns"
}

// rewrite returns mod's statements with every reference renamed.
func (l *linker) rewrite(mod *jsparse.Module) []string {
	out := make([]string, len(mod.Statements))

	for i, st := range mod.Statements {
		out[i] = l.rewriteText(mod.Path, st.Text, l.idents[mod.Path][i])
	}

	return out
}

func (l *linker) rewriteText(modPath, text string, ids []jsparse.Ident) string {
	var (
		sb   strings.Builder
		last int
	)

	for _, id := range ids {
		if !id.Kind.IsReference() {
			continue
		}

		name, ok := l.lookup(modPath, id.Name)
		if !ok || name == id.Name {
			continue
		}

		sb.WriteString(text[last:id.Start])

		if id.Kind == jsparse.IdentShorthand {
			sb.WriteString(id.Name)
			sb.WriteString(": ")
		}

		sb.WriteString(name)
		last = id.End
	}

	if last == 0 {
		return text
	}

	sb.WriteString(text[last:])

	return sb.String()
}

func (l *linker) lookup(modPath, local string) (string, bool) {
	key := ModuleKey{Module: modPath, Local: local}

	if name, ok := l.renames[key]; ok {
		return name, true
	}

	name, ok := l.aliases[key]

	return name, ok
}
