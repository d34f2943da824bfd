package jsparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
)

func namesOf(idents []jsparse.Ident, kinds ...jsparse.IdentKind) []string {
	var out []string

	for _, id := range idents {
		for _, k := range kinds {
			if id.Kind == k {
				out = append(out, id.Name)
			}
		}
	}

	return out
}

func TestClassifyObjectLiteral(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify(
		"const o = { a, b: c, d() {}, get e() { return f } }; o.g; label: for (;;) { break label }")
	require.NoError(t, err)

	assert.Equal(t, []string{"o", "c", "f", "o"}, namesOf(ids, jsparse.IdentReference))
	assert.Equal(t, []string{"a"}, namesOf(ids, jsparse.IdentShorthand))
	assert.Equal(t, []string{"b", "d", "e"}, namesOf(ids, jsparse.IdentKey))
	assert.Equal(t, []string{"g"}, namesOf(ids, jsparse.IdentProperty))
	assert.Equal(t, []string{"label", "label"}, namesOf(ids, jsparse.IdentLabel))
}

func TestClassifySkipsStringsCommentsAndRegex(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("foo('bar' + `x${baz}y` + /qux/) // quux")
	require.NoError(t, err)

	assert.Equal(t, []string{"foo", "baz"}, namesOf(ids, jsparse.IdentReference))
}

func TestClassifyClassBody(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("class A extends B { static x = y; #p = 1; m() { return this.#p + z } }")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "y", "z"}, namesOf(ids, jsparse.IdentReference))
	assert.Equal(t, []string{"x", "m"}, namesOf(ids, jsparse.IdentMember))
}

func TestClassifyClassMemberNamedClass(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("class A { class() { return { q } } }")
	require.NoError(t, err)

	assert.Equal(t, []string{"class"}, namesOf(ids, jsparse.IdentMember))
	assert.Equal(t, []string{"q"}, namesOf(ids, jsparse.IdentShorthand))
}

func TestClassifyTernaryIsNotLabel(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("x = a ? b : c; switch (v) { case w: break }")
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "a", "b", "c", "v", "w"}, namesOf(ids, jsparse.IdentReference))
	assert.Empty(t, namesOf(ids, jsparse.IdentLabel))
}

func TestClassifyBlockVersusObject(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("if (ok) { run } const f = () => ({ run }); const g = x ? { y } : { z }")
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "run", "f", "g", "x"}, namesOf(ids, jsparse.IdentReference))
	assert.Equal(t, []string{"run", "y", "z"}, namesOf(ids, jsparse.IdentShorthand))
}

func TestClassifyContextualKeywords(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("for (const item of items) {} const h = async (a) => a; const of = 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"item", "items", "h", "a", "a", "of"}, namesOf(ids, jsparse.IdentReference))
}

func TestClassifyDestructuringDefaults(t *testing.T) {
	t.Parallel()

	ids, err := jsparse.Classify("({ a = 1, b: { c } } = src)")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, namesOf(ids, jsparse.IdentShorthand))
	assert.Equal(t, []string{"b"}, namesOf(ids, jsparse.IdentKey))
	assert.Equal(t, []string{"src"}, namesOf(ids, jsparse.IdentReference))
}

func TestClassifyReportsOffsets(t *testing.T) {
	t.Parallel()

	text := "let value = other.value"
	ids, err := jsparse.Classify(text)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for _, id := range ids {
		assert.Equal(t, id.Name, text[id.Start:id.End])
	}

	assert.True(t, ids[0].Kind.IsReference())
	assert.False(t, ids[2].Kind.IsReference())
}
