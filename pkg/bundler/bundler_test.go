package bundler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/cache"
	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/linker"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
)

func newBundler(entry string, files map[string]string, opts ...bundler.Option) *bundler.Bundler {
	b := bundler.New(entry, opts...)
	for p, src := range files {
		b.AddFile(p, src)
	}

	return b
}

func TestBundleEndToEnd(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { A, FOO, add } from './a'; console.log(A, FOO); console.log(add(1,2));",
		"./a.js":  "export const FOO = 1; export function add(x,y){return x+y;} export class A { foo(){} }",
	})

	out, err := b.Bundle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "const FOO = 1;\n"+
		"function add(x,y){return x+y;}\n"+
		"class A { foo(){} }\n"+
		"console.log(A, FOO);\n"+
		"console.log(add(1,2));", out)
	assert.NotContains(t, out, "import")
	assert.NotContains(t, out, "export")
}

func TestBundleIsIdempotent(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { x } from './a'; import { y } from './b'; console.log(x, y);",
		"a.js":    "export const x = 1;",
		"b.js":    "const x = 2; export const y = x;",
	})

	first, err := b.Bundle(context.Background())
	require.NoError(t, err)

	second, err := b.Bundle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBundleIsDeterministicAcrossInstances(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.js":  "import './c'; import { v } from './b'; import * as a from './a'; console.log(v, a);",
		"a.js":     "export const v = 1; export default function () {}",
		"b.js":     "export const v = 2;",
		"c.js":     "const v = 3; export { v as w };",
		"other.js": "export const unused = 1;",
	}

	var outputs []string

	for range 5 {
		out, err := newBundler("main.js", files).Bundle(context.Background())
		require.NoError(t, err)

		outputs = append(outputs, out)
	}

	for _, out := range outputs[1:] {
		assert.Equal(t, outputs[0], out)
	}

	assert.NotContains(t, outputs[0], "unused")
}

func TestBundleMissingImport(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { m } from './missing'; console.log(m);",
	})

	out, err := b.Bundle(context.Background())
	require.Error(t, err)
	assert.Empty(t, out)

	var rerr *resolve.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "main.js", rerr.Importer)
	assert.Equal(t, "./missing", rerr.Specifier)
	assert.Equal(t, bundler.KindResolution, bundler.KindOf(err))

	path, line, col, ok := bundler.Position(err)
	require.True(t, ok)
	assert.Equal(t, "main.js", path)
	assert.Equal(t, 1, line)
	assert.Equal(t, 19, col)
}

func TestBundleCycle(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	b := newBundler("x.js", map[string]string{
		"x.js": "import { y } from './y'; export const x = 1; export function getY() { return y; }",
		"y.js": "import { x } from './x'; export const y = 2; export function getX() { return x; }",
	}, bundler.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"y.js", "x.js"}, res.Order)
	assert.Equal(t, 1, strings.Count(res.Code, "const x = 1;"))
	assert.Equal(t, 1, strings.Count(res.Code, "const y = 2;"))
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"x.js", "y.js", "x.js"}, bundler.CyclePath(res, res.Cycles[0]))
	assert.Contains(t, logs.String(), "import cycle")
	assert.Contains(t, logs.String(), "x.js -> y.js -> x.js")

	rep := bundler.NewReport(res, nil)
	require.Len(t, rep.Cycles, 1)
	assert.Equal(t, bundler.CycleEdge{Importer: "y.js", Imported: "x.js", Path: []string{"x.js", "y.js", "x.js"}}, rep.Cycles[0])
}

func TestBundleResolvesImpliedExtension(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js":      "import { a } from './a'; import { i } from './lib'; console.log(a, i);",
		"./a.js":       "export const a = 1;",
		"lib/index.js": "export const i = 2;",
	})

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "./a.js", res.Graph.Resolved["main.js"]["./a"])
	assert.Equal(t, "lib/index.js", res.Graph.Resolved["main.js"]["./lib"])
}

func TestBundleRenamesAreDistinct(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { a } from './a'; import { b } from './b'; const x = a + b;",
		"a.js":    "const x = 1; export const a = x;",
		"b.js":    "const x = 2; export const b = x;",
	})

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	seen := map[string]linker.ModuleKey{}
	for key, name := range res.Renames {
		_, dup := seen[name]
		require.False(t, dup, "%s reused for %v", name, key)
		seen[name] = key
	}

	assert.Contains(t, res.Code, "const x$2 = a + b;")
}

func TestBundleDeclarationsAfterBlocks(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "if (true) { } import { a } from './a'; import { b } from './b'; console.log(a, b);",
		"a.js":    "if (true) {} const x = 1; export const a = x;",
		"b.js":    "for (;;) { break } const x = 2; export const b = x;",
	})

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "x$1", res.Renames[linker.ModuleKey{Module: "b.js", Local: "x"}])
	assert.Equal(t, 1, strings.Count(res.Code, "const x = 1;"))
	assert.Contains(t, res.Code, "const x$1 = 2;")
	assert.Contains(t, res.Code, "const b = x$1;")
}

func TestBundleWithoutSemicolons(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "const b = (f) => f\nimport { z, id } from './a'\n(function () { console.log(z, id) })()",
		"a.js":    "export const z = 1\nexport const id = (f) => f",
	})

	out, err := b.Bundle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "const z = 1;\n"+
		"const id = (f) => f;\n"+
		"const b = (f) => f;\n"+
		"(function () { console.log(z, id) })();", out)
}

func TestBundleErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		kind  bundler.Kind
	}{
		{"parse", map[string]string{"main.js": "import { a from './a';"}, bundler.KindParse},
		{"bare", map[string]string{"main.js": "import React from 'react';"}, bundler.KindUnsupportedSpecifier},
		{"export", map[string]string{"main.js": "import { z } from './a';", "a.js": "export const a = 1;"}, bundler.KindUnresolvedExport},
		{"entry", map[string]string{"other.js": ""}, bundler.KindResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newBundler("main.js", tt.files).Bundle(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.kind, bundler.KindOf(err))
		})
	}

	assert.Equal(t, bundler.KindInternal, bundler.KindOf(errors.New("x")))
	assert.Empty(t, bundler.KindOf(nil))
}

func TestBundleParseErrorCarriesPath(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js":   "import './broken';",
		"broken.js": "export { a, ;",
	})

	_, err := b.Bundle(context.Background())

	var perr *jsparse.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.js", perr.Path)
}

func TestBundleSeesUpdates(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { v } from './a'; console.log(v);",
		"a.js":    "export const v = 1;",
	}, bundler.WithParseCache(cache.NewParseCache(0)))

	first, err := b.Bundle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, first, "const v = 1;")

	b.UpdateFile("a.js", "export const v = 2;")

	second, err := b.Bundle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, second, "const v = 2;")

	assert.True(t, b.RemoveFile("a.js"))
	_, err = b.Bundle(context.Background())
	require.ErrorIs(t, err, resolve.ErrUnresolved)
}

func TestBundleUsesParseCache(t *testing.T) {
	t.Parallel()

	c := cache.NewParseCache(0)
	b := newBundler("main.js", map[string]string{
		"main.js": "import { v } from './a'; console.log(v);",
		"a.js":    "export const v = 1;",
	}, bundler.WithParseCache(c))

	for range 3 {
		_, err := b.Bundle(context.Background())
		require.NoError(t, err)
	}

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(4), stats.Hits)
}

type rejectChecker struct{ path string }

func (r rejectChecker) Check(_ context.Context, path, src string) error {
	if path == r.path {
		return jsparse.NewParseError(path, src, 0, "rejected")
	}

	return nil
}

func TestBundleSyntaxChecker(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import './a';",
		"a.js":    "let a = 1;",
	}, bundler.WithSyntaxChecker(rejectChecker{path: "a.js"}))

	_, err := b.Bundle(context.Background())
	assert.Equal(t, bundler.KindParse, bundler.KindOf(err))
	assert.ErrorContains(t, err, "a.js:1:1: rejected")
}

func TestBundleTracesPhases(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	b := newBundler("main.js", map[string]string{"main.js": "console.log(1);"},
		bundler.WithTracer(tp.Tracer("test")))

	_, err := b.Bundle(context.Background())
	require.NoError(t, err)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}

	assert.ElementsMatch(t, []string{"jsbundle.graph", "jsbundle.order", "jsbundle.link", "jsbundle.emit", "jsbundle.bundle"}, names)
}

func TestBundleConcurrentUpdates(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { v } from './a'; console.log(v);",
		"a.js":    "export const v = 0;",
	})

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			b.UpdateFile("a.js", fmt.Sprintf("export const v = %d;", i))
		}()

		go func() {
			defer wg.Done()

			out, err := b.Bundle(context.Background())
			assert.NoError(t, err)
			assert.Contains(t, out, "console.log(v);")
		}()
	}

	wg.Wait()
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{"b.js": "2", "a.js": "1"})

	assert.Equal(t, "main.js", b.Entry())
	assert.Equal(t, []string{"a.js", "b.js"}, b.Files())

	src, ok := b.Source("a.js")
	assert.True(t, ok)
	assert.Equal(t, "1", src)
}

func TestReports(t *testing.T) {
	t.Parallel()

	b := newBundler("main.js", map[string]string{
		"main.js": "import { a } from './a'; console.log(a);",
		"a.js":    "export const a = 1; export default a;",
	})

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	rep := bundler.NewReport(res, nil)
	assert.Nil(t, rep.Error)
	assert.Equal(t, []string{"a.js", "main.js"}, rep.Order)
	assert.Equal(t, res.Code, rep.Code)

	graph := bundler.NewGraphReport(res)
	assert.Equal(t, "main.js", graph.Entry)
	require.Len(t, graph.Modules, 2)
	assert.Equal(t, []string{"a", "default"}, graph.Modules[0].Exports)
	assert.Equal(t, []string{"main.js"}, graph.Modules[0].Importers)
	assert.Equal(t, []string{"a.js"}, graph.Modules[1].Imports)

	assert.Contains(t, bundler.Dot(res), `"1 main.js" -> "0 a.js"`)

	_, err = newBundler("main.js", map[string]string{"main.js": "import './x';"}).Build(context.Background())
	failed := bundler.NewReport(nil, err)
	require.NotNil(t, failed.Error)
	assert.Equal(t, bundler.KindResolution, failed.Error.Kind)
	assert.Equal(t, "main.js", failed.Error.Path)
	assert.Equal(t, 1, failed.Error.Line)
	assert.Empty(t, failed.Code)
}
