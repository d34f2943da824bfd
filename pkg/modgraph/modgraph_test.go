package modgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/filetable"
	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
	"github.com/Sumatoshi-tech/jsbundle/pkg/modgraph"
	"github.com/Sumatoshi-tech/jsbundle/pkg/resolve"
)

func build(t *testing.T, files map[string]string, entry string) (*modgraph.Graph, error) {
	t.Helper()

	table := filetable.FromMap(files)

	return modgraph.Build(context.Background(), table, entry, nil, resolve.New(table, resolve.DefaultOptions()))
}

func paths(mods []*jsparse.Module) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Path)
	}

	return out
}

func TestBuildDiscoversReachableModules(t *testing.T) {
	t.Parallel()

	g, err := build(t, map[string]string{
		"main.js":      "import { a } from './a'; import './lib/';",
		"./a.js":       "import { c } from './c.js'; export const a = c;",
		"c.js":         "export const c = 1;",
		"lib/index.js": "console.log('side');",
		"unused.js":    "export const u = 1;",
	}, "main.js")
	require.NoError(t, err)

	assert.Len(t, g.Modules, 4)
	assert.NotContains(t, g.Modules, "unused.js")
	assert.Equal(t, "./a.js", g.Resolved["main.js"]["./a"])
	assert.Equal(t, "lib/index.js", g.Resolved["main.js"]["./lib/"])
	assert.Equal(t, "c.js", g.Resolved["./a.js"]["./c.js"])
	assert.Equal(t, []string{"./a.js", "lib/index.js"}, g.Imports("main.js"))
	assert.Equal(t, []string{"main.js"}, g.Importers("./a.js"))
	require.Len(t, g.Edges, 3)
	assert.Equal(t, "./a", g.Edges[0].Import.Specifier)

	order, cycles := g.Order()
	assert.Equal(t, []string{"c.js", "./a.js", "lib/index.js", "main.js"}, paths(order))
	assert.Empty(t, cycles)
}

func TestBuildCycleTerminates(t *testing.T) {
	t.Parallel()

	g, err := build(t, map[string]string{
		"x.js": "import { y } from './y'; export const x = 1;",
		"y.js": "import { x } from './x'; export const y = 2;",
	}, "x.js")
	require.NoError(t, err)

	order, cycles := g.Order()
	assert.Equal(t, []string{"y.js", "x.js"}, paths(order))
	require.Len(t, cycles, 1)
	assert.Equal(t, "y.js", cycles[0].From)
}

func TestBuildMissingImport(t *testing.T) {
	t.Parallel()

	_, err := build(t, map[string]string{
		"main.js": "\nimport { m } from './missing';",
	}, "main.js")
	require.Error(t, err)

	var rerr *resolve.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "main.js", rerr.Importer)
	assert.Equal(t, "./missing", rerr.Specifier)
	assert.Equal(t, 2, rerr.Line)
	assert.Equal(t, 19, rerr.Column)
}

func TestBuildMissingEntry(t *testing.T) {
	t.Parallel()

	_, err := build(t, map[string]string{"a.js": ""}, "main.js")

	var rerr *resolve.ResolutionError
	require.True(t, errors.As(err, &rerr))
	assert.Empty(t, rerr.Importer)
}

func TestBuildBareSpecifier(t *testing.T) {
	t.Parallel()

	_, err := build(t, map[string]string{"main.js": "import React from 'react';"}, "main.js")

	var uerr *resolve.UnsupportedSpecifierError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "react", uerr.Specifier)
	assert.Equal(t, 1, uerr.Line)
}

func TestBuildParseError(t *testing.T) {
	t.Parallel()

	_, err := build(t, map[string]string{
		"main.js":   "import './broken';",
		"broken.js": "const x = {;",
	}, "main.js")

	var perr *jsparse.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.js", perr.Path)
}

func TestBuildParsesEachModuleOnce(t *testing.T) {
	t.Parallel()

	table := filetable.FromMap(map[string]string{
		"main.js":   "import './a'; import './b';",
		"a.js":      "import './shared';",
		"b.js":      "import './shared';",
		"shared.js": "",
	})

	calls := map[string]int{}
	parse := func(path, src string) (*jsparse.Module, error) {
		calls[path]++

		return jsparse.Parse(path, src)
	}

	_, err := modgraph.Build(context.Background(), table, "main.js", parse, resolve.New(table, resolve.DefaultOptions()))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"main.js": 1, "a.js": 1, "b.js": 1, "shared.js": 1}, calls)
}

func TestBuildHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := filetable.FromMap(map[string]string{"main.js": ""})

	_, err := modgraph.Build(ctx, table, "main.js", nil, resolve.New(table, resolve.DefaultOptions()))
	require.ErrorIs(t, err, context.Canceled)
}
