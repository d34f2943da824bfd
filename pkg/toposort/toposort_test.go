package toposort_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/toposort"
)

func index(list []string, val string) int {
	for idx, str := range list {
		if str == val {
			return idx
		}
	}

	return -1
}

// addEdges is a test helper to add multiple edges at once.
func addEdges(graph *toposort.Graph, edges ...toposort.Edge) {
	for _, e := range edges {
		graph.AddEdge(e.From, e.To)
	}
}

func TestGraphDuplicatedNode(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	assert.True(t, graph.AddNode("a"))
	assert.False(t, graph.AddNode("a"))
	assert.Equal(t, []string{"a"}, graph.Nodes())
}

func TestDependencyOrderDependenciesFirst(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addEdges(graph,
		toposort.Edge{From: "main.js", To: "./a.js"},
		toposort.Edge{From: "main.js", To: "./b.js"},
		toposort.Edge{From: "./b.js", To: "./a.js"},
		toposort.Edge{From: "./a.js", To: "./c.js"},
	)

	order, cycles := graph.DependencyOrder("main.js")
	require.Len(t, order, 4)
	assert.Empty(t, cycles)

	for _, node := range graph.Nodes() {
		for _, child := range graph.FindChildren(node) {
			assert.Less(t, index(order, child), index(order, node), "%s before %s", child, node)
		}
	}

	assert.Equal(t, []string{"./c.js", "./a.js", "./b.js", "main.js"}, order)
}

func TestDependencyOrderCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addEdges(graph,
		toposort.Edge{From: "x.js", To: "y.js"},
		toposort.Edge{From: "y.js", To: "x.js"},
	)

	order, cycles := graph.DependencyOrder("x.js")
	assert.Equal(t, []string{"y.js", "x.js"}, order)
	assert.Equal(t, []toposort.Edge{{From: "y.js", To: "x.js"}}, cycles)
}

func TestDependencyOrderSelfImport(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("self.js", "self.js")

	order, cycles := graph.DependencyOrder("self.js")
	assert.Equal(t, []string{"self.js"}, order)
	assert.Len(t, cycles, 1)
}

func TestDependencyOrderUnknownRoot(t *testing.T) {
	t.Parallel()

	order, cycles := toposort.NewGraph().DependencyOrder("nope.js")
	assert.Nil(t, order)
	assert.Nil(t, cycles)
}

func TestGraphFindCycle(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addEdges(graph,
		toposort.Edge{From: "main.js", To: "a.js"},
		toposort.Edge{From: "a.js", To: "b.js"},
		toposort.Edge{From: "b.js", To: "c.js"},
		toposort.Edge{From: "c.js", To: "a.js"},
		toposort.Edge{From: "c.js", To: "d.js"},
	)

	_, cycles := graph.DependencyOrder("main.js")
	require.Equal(t, []toposort.Edge{{From: "c.js", To: "a.js"}}, cycles)

	assert.Equal(t, []string{"a.js", "b.js", "c.js", "a.js"}, graph.FindCycle(cycles[0]))
	assert.Nil(t, graph.FindCycle(toposort.Edge{From: "main.js", To: "d.js"}))
	assert.Nil(t, graph.FindCycle(toposort.Edge{From: "missing.js", To: "a.js"}))
}

func TestGraphFindCycleSelfImport(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("self.js", "self.js")

	_, cycles := graph.DependencyOrder("self.js")
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"self.js", "self.js"}, graph.FindCycle(cycles[0]))
}

func TestGraphParentsAndChildren(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	addEdges(graph,
		toposort.Edge{From: "m", To: "z"},
		toposort.Edge{From: "m", To: "a"},
		toposort.Edge{From: "b", To: "a"},
	)

	assert.Equal(t, []string{"z", "a"}, graph.FindChildren("m"))
	assert.Equal(t, []string{"b", "m"}, graph.FindParents("a"))
	assert.Nil(t, graph.FindChildren("missing"))
	assert.Equal(t, 4, graph.Len())
	assert.Equal(t, 3, graph.EdgeCount())
}

func TestGraphSerialize(t *testing.T) {
	t.Parallel()

	graph := toposort.NewGraph()
	graph.AddEdge("main.js", "a.js")
	graph.AddNode("lonely.js")

	order, _ := graph.DependencyOrder("main.js")
	out := graph.Serialize(order)

	assert.True(t, strings.HasPrefix(out, "digraph jsbundle {\n"))
	assert.Contains(t, out, `"1 main.js" -> "0 a.js"`)
	assert.Contains(t, out, `"lonely.js"`)
	assert.True(t, strings.HasSuffix(out, "}"))
}
