// Package toposort orders the modules of a dependency graph so that every
// module comes after the modules it imports.
package toposort

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a directed graph of named nodes backed by an [IntGraph].
type Graph struct {
	symbols  *symbols
	intGraph *IntGraph
}

// Edge names both ends of a directed edge.
type Edge struct {
	From string
	To   string
}

// NewGraph initializes a new Graph.
func NewGraph() *Graph {
	return &Graph{
		symbols:  newSymbols(),
		intGraph: NewIntGraph(),
	}
}

// AddNode inserts a node. It returns false if the node already exists.
func (g *Graph) AddNode(name string) bool {
	if _, exists := g.symbols.lookup(name); exists {
		return false
	}

	id := g.symbols.intern(name)
	g.intGraph.grow(id + 1)

	return true
}

// AddEdge inserts the link from "from" to "to", adding missing nodes.
// Returns false if the edge already existed.
func (g *Graph) AddEdge(from, to string) bool {
	u := g.symbols.intern(from)
	v := g.symbols.intern(to)

	return g.intGraph.AddEdge(u, v)
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.symbols.names...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.symbols.names)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for u := range g.intGraph.Len() {
		total += len(g.intGraph.Successors(u))
	}

	return total
}

// DependencyOrder lists the nodes reachable from root, each after the nodes
// it points to. Children are visited in edge insertion order. Edges that
// close a cycle are returned separately and do not affect the order beyond
// being skipped.
func (g *Graph) DependencyOrder(root string) ([]string, []Edge) {
	id, ok := g.symbols.lookup(root)
	if !ok {
		return nil, nil
	}

	ids, back := g.intGraph.PostOrder(id)

	order := make([]string, len(ids))
	for i, n := range ids {
		order[i] = g.symbols.name(n)
	}

	var cycles []Edge
	for _, e := range back {
		cycles = append(cycles, Edge{From: g.symbols.name(e.From), To: g.symbols.name(e.To)})
	}

	return order, cycles
}

// FindCycle returns the chain of edges that the back-edge e closes, as
// e.To -> ... -> e.From -> e.To. It returns nil when e.To does not reach
// e.From.
func (g *Graph) FindCycle(e Edge) []string {
	start, ok := g.symbols.lookup(e.To)
	if !ok {
		return nil
	}

	end, ok := g.symbols.lookup(e.From)
	if !ok {
		return nil
	}

	ids := g.intGraph.ShortestPath(start, end)
	if ids == nil {
		return nil
	}

	cycle := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		cycle = append(cycle, g.symbols.name(id))
	}

	return append(cycle, e.To)
}

// FindParents returns the other ends of incoming edges, sorted.
func (g *Graph) FindParents(to string) []string {
	targetID, exists := g.symbols.lookup(to)
	if !exists {
		return nil
	}

	var parents []string

	for u := range g.intGraph.Len() {
		for _, v := range g.intGraph.Successors(u) {
			if v == targetID {
				parents = append(parents, g.symbols.name(u))

				break
			}
		}
	}

	sort.Strings(parents)

	return parents
}

// FindChildren returns the other ends of outgoing edges in insertion order.
func (g *Graph) FindChildren(from string) []string {
	u, exists := g.symbols.lookup(from)
	if !exists {
		return nil
	}

	ids := g.intGraph.Successors(u)
	children := make([]string, len(ids))

	for i, v := range ids {
		children[i] = g.symbols.name(v)
	}

	return children
}

// Serialize outputs the graph in Graphviz format. Nodes are labeled with
// their index in order, when present.
func (g *Graph) Serialize(order []string) string {
	index := make(map[string]int, len(order))
	for i, node := range order {
		index[node] = i
	}

	label := func(node string) string {
		if i, ok := index[node]; ok {
			return fmt.Sprintf("%d %s", i, node)
		}

		return node
	}

	var sb strings.Builder

	sb.WriteString("digraph jsbundle {\n")

	for _, from := range g.Nodes() {
		children := g.FindChildren(from)
		if len(children) == 0 {
			fmt.Fprintf(&sb, "  %q\n", label(from))

			continue
		}

		for _, to := range children {
			fmt.Fprintf(&sb, "  %q -> %q\n", label(from), label(to))
		}
	}

	sb.WriteString("}")

	return sb.String()
}
