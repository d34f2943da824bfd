// Package jsparse turns one JavaScript module into a Module: its top-level
// statements as opaque text plus the import and export declarations found
// between them.
package jsparse

// Import names with special meaning.
const (
	// ImportDefault is the imported name of a default import.
	ImportDefault = "default"
	// ImportNamespace is the imported name of a namespace import.
	ImportNamespace = "*"
)

// ExportKind records the syntax an export came from. The linker treats every
// kind as a named value export.
type ExportKind string

// Export kinds.
const (
	ExportConst    ExportKind = "const"
	ExportLet      ExportKind = "let"
	ExportVar      ExportKind = "var"
	ExportFunction ExportKind = "function"
	ExportClass    ExportKind = "class"
	ExportDefault  ExportKind = "default"
	ExportNamed    ExportKind = "named"
	ExportReexport ExportKind = "reexport"
)

// Module is the parsed form of one file.
type Module struct {
	Path       string
	Statements []Statement
	Imports    []ImportDecl
	Exports    []ExportDecl

	// StarExports lists the specifiers of "export * from" declarations in
	// source order. Each also has a binding-less entry in Imports.
	StarExports []string

	// TopLevel lists names declared at module scope in declaration order.
	// Import locals are not included.
	TopLevel []string
}

// Statement is one top-level statement with import/export syntax removed.
type Statement struct {
	Text     string
	Offset   int
	Declares []string
}

// ImportDecl is one import declaration, or the import half of a re-export.
type ImportDecl struct {
	Specifier string
	Bindings  []Binding
	Offset    int
	Line      int
	Column    int
}

// Binding maps a local name to a name exported by the imported module.
// Imported is a name, [ImportDefault] or [ImportNamespace].
type Binding struct {
	Local    string
	Imported string
}

// ExportDecl makes Local available to importers as Exported.
type ExportDecl struct {
	Local    string
	Exported string
	Kind     ExportKind
}

// IsSynthetic reports whether local was generated for a re-export and never
// appears in emitted code.
func IsSynthetic(local string) bool {
	return len(local) > 0 && local[0] == '*'
}

// HasTopLevel reports whether name is declared at module scope.
func (m *Module) HasTopLevel(name string) bool {
	for _, n := range m.TopLevel {
		if n == name {
			return true
		}
	}

	return false
}

// ImportLocals returns every local name bound by an import, synthetic
// re-export locals included, mapped to its declaration index and binding.
func (m *Module) ImportLocals() map[string]ImportRef {
	out := make(map[string]ImportRef)

	for i, decl := range m.Imports {
		for _, b := range decl.Bindings {
			out[b.Local] = ImportRef{Decl: i, Binding: b}
		}
	}

	return out
}

// ImportRef locates a binding within Module.Imports.
type ImportRef struct {
	Decl    int
	Binding Binding
}

// Export returns the export named exported, if any.
func (m *Module) Export(exported string) (ExportDecl, bool) {
	for _, e := range m.Exports {
		if e.Exported == exported {
			return e, true
		}
	}

	return ExportDecl{}, false
}
