package toposort

import "slices"

// IntGraph is a directed graph over dense integer IDs. Successor lists keep
// insertion order, which is what makes traversals deterministic.
type IntGraph struct {
	// nodes is an adjacency list where nodes[u] contains a list of v for edges u -> v.
	nodes [][]int
}

// BackEdge is an edge that closes a cycle during a depth-first traversal.
type BackEdge struct {
	From int
	To   int
}

// NewIntGraph creates a new IntGraph.
func NewIntGraph() *IntGraph {
	return &IntGraph{}
}

// grow makes room for at least n nodes.
func (g *IntGraph) grow(n int) {
	for len(g.nodes) < n {
		g.nodes = append(g.nodes, nil)
	}
}

// Len returns the number of node slots.
func (g *IntGraph) Len() int {
	return len(g.nodes)
}

// AddEdge adds a directed edge from u to v.
// Returns true if the edge was added, false if it already existed.
func (g *IntGraph) AddEdge(u, v int) bool {
	g.grow(max(u, v) + 1)

	for _, neighbor := range g.nodes[u] {
		if neighbor == v {
			return false
		}
	}

	g.nodes[u] = append(g.nodes[u], v)

	return true
}

// Successors returns the targets of u's outgoing edges in insertion order.
func (g *IntGraph) Successors(u int) []int {
	if u < 0 || u >= len(g.nodes) {
		return nil
	}

	return g.nodes[u]
}

type dfsFrame struct {
	node int
	next int
}

// PostOrder runs an iterative depth-first traversal from root and returns
// nodes in post-order: every node after the successors it reaches first.
// An edge to a node still on the active path is a back-edge; it is reported
// and otherwise ignored, so the node is emitted when its first visit ends.
func (g *IntGraph) PostOrder(root int) ([]int, []BackEdge) {
	if root < 0 || root >= len(g.nodes) {
		return nil, nil
	}

	const (
		unvisited = iota
		active
		done
	)

	state := make([]uint8, len(g.nodes))
	order := make([]int, 0, len(g.nodes))

	var back []BackEdge

	stack := []dfsFrame{{node: root}}
	state[root] = active

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next < len(g.nodes[top.node]) {
			v := g.nodes[top.node][top.next]
			top.next++

			switch state[v] {
			case unvisited:
				state[v] = active
				stack = append(stack, dfsFrame{node: v})
			case active:
				back = append(back, BackEdge{From: top.node, To: v})
			}

			continue
		}

		state[top.node] = done
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}

	return order, back
}

// ShortestPath returns a path with the fewest edges from "from" to "to",
// both included, or nil when "to" is unreachable. A node reaches itself with
// the one-element path.
func (g *IntGraph) ShortestPath(from, to int) []int {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		return nil
	}

	parent := map[int]int{from: -1}
	queue := []int{from}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		if u == to {
			var path []int
			for cur := u; cur != -1; cur = parent[cur] {
				path = append(path, cur)
			}

			slices.Reverse(path)

			return path
		}

		for _, v := range g.nodes[u] {
			if _, seen := parent[v]; !seen {
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	return nil
}
