package bundler

import (
	"errors"
	"sort"

	"github.com/Sumatoshi-tech/jsbundle/pkg/toposort"
)

// Report is the serializable outcome of a pass, shared by the HTTP, MCP and
// CLI hosts. Exactly one of Code or Error is set.
type Report struct {
	Code   string       `json:"code,omitempty"   yaml:"code,omitempty"`
	Order  []string     `json:"order,omitempty"  yaml:"order,omitempty"`
	Cycles []CycleEdge  `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Error  *ErrorReport `json:"error,omitempty"  yaml:"error,omitempty"`
}

// CycleEdge is an import edge skipped because it closes a cycle. Path is the
// cycle itself, starting and ending at Imported.
type CycleEdge struct {
	Importer string   `json:"importer"       yaml:"importer"`
	Imported string   `json:"imported"       yaml:"imported"`
	Path     []string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ErrorReport describes a failed pass.
type ErrorReport struct {
	Kind    Kind   `json:"kind"             yaml:"kind"`
	Message string `json:"message"          yaml:"message"`
	Path    string `json:"path,omitempty"   yaml:"path,omitempty"`
	Line    int    `json:"line,omitempty"   yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
}

// NewReport builds the report for the result and error of one Build call.
func NewReport(res *Result, err error) Report {
	if err != nil {
		return Report{Error: NewErrorReport(err)}
	}

	if res == nil {
		return Report{Error: NewErrorReport(errors.New("no result"))}
	}

	return Report{Code: res.Code, Order: res.Order, Cycles: cycleEdges(res)}
}

// NewErrorReport classifies err and extracts its position.
func NewErrorReport(err error) *ErrorReport {
	rep := &ErrorReport{Kind: KindOf(err), Message: err.Error()}
	if path, line, col, ok := Position(err); ok {
		rep.Path, rep.Line, rep.Column = path, line, col
	}

	return rep
}

// GraphReport describes the module graph of a successful pass.
type GraphReport struct {
	Entry   string         `json:"entry"            yaml:"entry"`
	Order   []string       `json:"order"            yaml:"order"`
	Modules []ModuleReport `json:"modules"          yaml:"modules"`
	Edges   int            `json:"edges"            yaml:"edges"`
	Cycles  []CycleEdge    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// ModuleReport is one node of a GraphReport.
type ModuleReport struct {
	Path      string   `json:"path"                yaml:"path"`
	Imports   []string `json:"imports,omitempty"   yaml:"imports,omitempty"`
	Importers []string `json:"importers,omitempty" yaml:"importers,omitempty"`
	Exports   []string `json:"exports,omitempty"   yaml:"exports,omitempty"`
}

// NewGraphReport lists the modules of res in emission order.
func NewGraphReport(res *Result) GraphReport {
	rep := GraphReport{
		Entry: res.Graph.Entry,
		Order: res.Order,
		Edges: res.Graph.Dependencies().EdgeCount(),
	}

	for _, p := range res.Order {
		mod := res.Graph.Modules[p]

		var exports []string
		for _, e := range mod.Exports {
			exports = append(exports, e.Exported)
		}

		sort.Strings(exports)

		rep.Modules = append(rep.Modules, ModuleReport{
			Path:      p,
			Imports:   res.Graph.Imports(p),
			Importers: res.Graph.Importers(p),
			Exports:   exports,
		})
	}

	rep.Cycles = cycleEdges(res)

	return rep
}

func cycleEdges(res *Result) []CycleEdge {
	var out []CycleEdge
	for _, c := range res.Cycles {
		out = append(out, CycleEdge{Importer: c.From, Imported: c.To, Path: CyclePath(res, c)})
	}

	return out
}

// CyclePath returns the import chain closed by the skipped edge c.
func CyclePath(res *Result, c toposort.Edge) []string {
	return res.Graph.Dependencies().FindCycle(c)
}

// Dot renders the graph of res in Graphviz format, nodes numbered by
// emission order.
func Dot(res *Result) string {
	return res.Graph.Dependencies().Serialize(res.Order)
}
