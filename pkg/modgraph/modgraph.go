// Package modgraph discovers every module reachable from an entry file and
// records the import edges between them.
package modgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
	"github.com/Sumatoshi-tech/jsbundle/pkg/toposort"
)

// ParseFunc turns one file into a module. [jsparse.Parse] is the default; the
// bundler injects a cached variant.
type ParseFunc func(path, src string) (*jsparse.Module, error)

// Source provides file contents by file table key.
type Source interface {
	Get(path string) (string, bool)
}

// Edge is one importer -> importee link labeled with the declaration that
// produced it.
type Edge struct {
	From   string
	To     string
	Import jsparse.ImportDecl
}

// Graph is the dependency graph of one bundle pass.
type Graph struct {
	Entry   string
	Modules map[string]*jsparse.Module
	Edges   []Edge

	// Resolved maps importer -> specifier -> file table key.
	Resolved map[string]map[string]string

	deps *toposort.Graph
}

// Build parses the entry and every module it reaches, breadth first. Each
// module is parsed once; cycles terminate because visited keys are skipped.
func Build(ctx context.Context, files Source, entry string, parse ParseFunc, resolver *resolve.Resolver) (*Graph, error) {
	if parse == nil {
		parse = jsparse.Parse
	}

	root, err := resolver.Entry(entry)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Entry:    root,
		Modules:  make(map[string]*jsparse.Module),
		Resolved: make(map[string]map[string]string),
		deps:     toposort.NewGraph(),
	}
	g.deps.AddNode(root)

	queue := []string{root}
	queued := map[string]bool{root: true}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build graph: %w", ctx.Err())
		}

		path := queue[0]
		queue = queue[1:]

		src, ok := files.Get(path)
		if !ok {
			return nil, &resolve.ResolutionError{Specifier: path}
		}

		mod, err := parse(path, src)
		if err != nil {
			return nil, err
		}

		g.Modules[path] = mod
		g.Resolved[path] = make(map[string]string)

		for _, decl := range mod.Imports {
			key, err := resolveImport(resolver, path, decl)
			if err != nil {
				return nil, err
			}

			g.Resolved[path][decl.Specifier] = key
			g.deps.AddEdge(path, key)
			g.Edges = append(g.Edges, Edge{From: path, To: key, Import: decl})

			if !queued[key] {
				queued[key] = true
				queue = append(queue, key)
			}
		}
	}

	return g, nil
}

// resolveImport resolves decl and stamps its position onto any error.
func resolveImport(resolver *resolve.Resolver, importer string, decl jsparse.ImportDecl) (string, error) {
	key, err := resolver.Resolve(importer, decl.Specifier)
	if err == nil {
		return key, nil
	}

	var rerr *resolve.ResolutionError
	if errors.As(err, &rerr) {
		rerr.Line, rerr.Column = decl.Line, decl.Column
	}

	var uerr *resolve.UnsupportedSpecifierError
	if errors.As(err, &uerr) {
		uerr.Line, uerr.Column = decl.Line, decl.Column
	}

	return "", err
}

// Order returns the modules in dependency-first order and the import edges
// that were skipped because they close a cycle.
func (g *Graph) Order() ([]*jsparse.Module, []toposort.Edge) {
	paths, cycles := g.deps.DependencyOrder(g.Entry)

	out := make([]*jsparse.Module, 0, len(paths))
	for _, p := range paths {
		out = append(out, g.Modules[p])
	}

	return out, cycles
}

// Dependencies exposes the underlying graph for traversal and rendering.
func (g *Graph) Dependencies() *toposort.Graph {
	return g.deps
}

// Imports returns the resolved keys path imports, in source order.
func (g *Graph) Imports(path string) []string {
	return g.deps.FindChildren(path)
}

// Importers returns the keys of modules that import path, sorted.
func (g *Graph) Importers(path string) []string {
	return g.deps.FindParents(path)
}
