package linker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/filetable"
	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
	"github.com/Sumatoshi-tech/jsbundle/pkg/modgraph"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
)

func link(t *testing.T, files map[string]string, entry string) (*linker.Linked, error) {
	t.Helper()

	table := filetable.FromMap(files)

	g, err := modgraph.Build(context.Background(), table, entry, nil, resolve.New(table, resolve.DefaultOptions()))
	require.NoError(t, err)

	order, _ := g.Order()

	return linker.Link(order, g.Resolved)
}

// unit returns the trimmed statements of the unit for path.
func unit(t *testing.T, l *linker.Linked, path string) []string {
	t.Helper()

	for _, u := range l.Units {
		if u.Path != path {
			continue
		}

		out := make([]string, 0, len(u.Statements))
		for _, s := range u.Statements {
			out = append(out, strings.TrimSpace(s))
		}

		return out
	}

	t.Fatalf("no unit for %s", path)

	return nil
}

func TestLinkNamedImports(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { A, FOO, add } from './a'; console.log(A, FOO); console.log(add(1,2));",
		"./a.js":  "export const FOO = 1; export function add(x,y){return x+y;} export class A { foo(){} }",
	}, "main.js")
	require.NoError(t, err)

	require.Len(t, l.Units, 2)
	assert.Equal(t, "./a.js", l.Units[0].Path)
	assert.Equal(t, []string{
		"const FOO = 1;",
		"function add(x,y){return x+y;}",
		"class A { foo(){} }",
	}, unit(t, l, "./a.js"))
	assert.Equal(t, []string{
		"console.log(A, FOO);",
		"console.log(add(1,2));",
	}, unit(t, l, "main.js"))
	assert.Equal(t, "add", l.Aliases[linker.ModuleKey{Module: "main.js", Local: "add"}])
}

func TestLinkRenamesCollisions(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { x } from './a'; import { y } from './b'; console.log(x, y);",
		"a.js":    "export const x = 1;",
		"b.js":    "const x = 2; export const y = x;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"const x = 1;"}, unit(t, l, "a.js"))
	assert.Equal(t, []string{"const x$1 = 2;", "const y = x$1;"}, unit(t, l, "b.js"))
	assert.Equal(t, []string{"console.log(x, y);"}, unit(t, l, "main.js"))
}

func TestLinkAvoidsFreeNames(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { c } from './a'; console.log(c);",
		"a.js":    "const console = 1; export const c = console;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"const console$1 = 1;", "const c = console$1;"}, unit(t, l, "a.js"))
	assert.Equal(t, []string{"console.log(c);"}, unit(t, l, "main.js"))
}

func TestLinkRenamesAreDistinct(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import './a'; import './b'; import './c'; const v = 0;",
		"a.js":    "const v = 1; function f() {}",
		"b.js":    "const v = 2; function f() {}",
		"c.js":    "let v = 3; class f {}",
	}, "main.js")
	require.NoError(t, err)

	seen := map[string]linker.ModuleKey{}
	for key, name := range l.Renames {
		prev, dup := seen[name]
		require.False(t, dup, "%s assigned to %v and %v", name, prev, key)
		seen[name] = key
	}

	assert.Len(t, seen, 7)
	assert.Equal(t, "v$3", l.Renames[linker.ModuleKey{Module: "main.js", Local: "v"}])
}

func TestLinkShorthandExpansion(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { k } from './b'; import { o } from './a'; console.log(o, k);",
		"a.js":    "const k = 1; export const o = { k };",
		"b.js":    "export const k = 2;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"const k$1 = 1;", "const o = { k: k$1 };"}, unit(t, l, "a.js"))
}

func TestLinkLeavesPropertiesAndStrings(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { name } from './b'; import { obj, get } from './a'; console.log(name, obj, get());",
		"a.js": "const name = 'name';\n" +
			"// name is shadowed\n" +
			"export const obj = { name: name, label: `name ${name}` };\n" +
			"export function get() { return obj.name; }",
		"b.js": "export const name = 1;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"const name$1 = 'name';",
		"// name is shadowed\nconst obj = { name: name$1, label: `name ${name$1}` };",
		"function get() { return obj.name; }",
	}, unit(t, l, "a.js"))
}

func TestLinkDefaultExports(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import one from './a'; import two from './b'; console.log(one(), two);",
		"a.js":    "export default function () { return 1; }",
		"b.js":    "export default 2;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"function _default () { return 1; }"}, unit(t, l, "a.js"))
	assert.Equal(t, []string{"const _default$1 = 2;"}, unit(t, l, "b.js"))
	assert.Equal(t, []string{"console.log(_default(), _default$1);"}, unit(t, l, "main.js"))
}

func TestLinkReexportChain(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { d } from './a'; console.log(d);",
		"a.js":    "export * from './b';",
		"b.js":    "export { c as d } from './c';",
		"c.js":    "export const c = 1;",
	}, "main.js")
	require.NoError(t, err)

	assert.Equal(t, []string{"console.log(c);"}, unit(t, l, "main.js"))
	assert.Empty(t, unit(t, l, "a.js"))
}

func TestLinkNamespaceImport(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js":  "import * as u from './utils'; console.log(u.a, u.b());",
		"utils.js": "export const a = 1; export function b() {}",
	}, "main.js")
	require.NoError(t, err)

	require.Equal(t, "utils.js", l.Units[0].Path)
	require.Len(t, l.Units[0].Namespaces, 1)
	assert.Equal(t, "const u = Object.freeze({\n"+
		"  __proto__: null,\n"+
		"  get a() { return a; },\n"+
		"  get b() { return b; }\n"+
		"});", l.Units[0].Namespaces[0])
	assert.Equal(t, []string{"console.log(u.a, u.b());"}, unit(t, l, "main.js"))
}

func TestLinkNamespaceReexport(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"main.js": "import { ns } from './a'; const x = 1; console.log(ns.x, x);",
		"a.js":    "export * as ns from './b';",
		"b.js":    "export const x = 2;",
	}, "main.js")
	require.NoError(t, err)

	require.Len(t, l.Units[0].Namespaces, 1)
	assert.Contains(t, l.Units[0].Namespaces[0], "get x() { return x; }")
	assert.Equal(t, []string{"const x$1 = 1;", "console.log(ns.x, x$1);"}, unit(t, l, "main.js"))
}

func TestLinkUnresolvedExport(t *testing.T) {
	t.Parallel()

	_, err := link(t, map[string]string{
		"main.js": "import { y } from './a';",
		"a.js":    "export const x = 1;",
	}, "main.js")
	require.ErrorIs(t, err, linker.ErrUnresolvedExport)

	var uerr *linker.UnresolvedExportError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "main.js", uerr.Importer)
	assert.Equal(t, "./a", uerr.Specifier)
	assert.Equal(t, "a.js", uerr.Module)
	assert.Equal(t, "y", uerr.Name)
	assert.Equal(t, 1, uerr.Line)
	assert.Equal(t, 19, uerr.Column)
	assert.Equal(t, `main.js:1:19: "./a" (resolved to a.js) has no export named "y"`, err.Error())
}

func TestLinkUnresolvedReexport(t *testing.T) {
	t.Parallel()

	_, err := link(t, map[string]string{
		"main.js": "import './a';",
		"a.js":    "export { zz } from './b';",
		"b.js":    "export const x = 1;",
	}, "main.js")

	var uerr *linker.UnresolvedExportError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "a.js", uerr.Importer)
	assert.Equal(t, "zz", uerr.Name)
}

func TestLinkDefaultSkipsStarExports(t *testing.T) {
	t.Parallel()

	_, err := link(t, map[string]string{
		"main.js": "import d from './a';",
		"a.js":    "export * from './b';",
		"b.js":    "export default 1;",
	}, "main.js")
	require.ErrorIs(t, err, linker.ErrUnresolvedExport)
}

func TestLinkCycle(t *testing.T) {
	t.Parallel()

	l, err := link(t, map[string]string{
		"x.js": "import { y } from './y'; export const x = 1; console.log(y);",
		"y.js": "import { x } from './x'; export const y = 2; console.log(x);",
	}, "x.js")
	require.NoError(t, err)

	require.Len(t, l.Units, 2)
	assert.Equal(t, []string{"const y = 2;", "console.log(x);"}, unit(t, l, "y.js"))
	assert.Equal(t, []string{"const x = 1;", "console.log(y);"}, unit(t, l, "x.js"))
}

func TestLinkUnresolvedExportSuggestion(t *testing.T) {
	t.Parallel()

	_, err := link(t, map[string]string{
		"main.js":  "import { craeteStore } from './store';",
		"store.js": "export function createStore() {} export const version = 1;",
	}, "main.js")

	var uerr *linker.UnresolvedExportError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "createStore", uerr.Suggestion)
	assert.Contains(t, err.Error(), `(did you mean "createStore"?)`)
}
