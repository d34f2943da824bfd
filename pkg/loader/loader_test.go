package loader_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/jsbundle/pkg/loader"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestFromDirCollectsJavaScript(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, root, "main.js", "import './lib/util';")
	write(t, root, "lib/util.js", "export const u = 1;")
	write(t, root, "README.md", "# readme")
	write(t, root, "node_modules/dep/index.js", "module.exports = 1;")
	write(t, root, ".cache/tmp.js", "let x;")

	files, err := loader.FromDir(root, loader.Options{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"main.js":     "import './lib/util';",
		"lib/util.js": "export const u = 1;",
	}, files)
}

func TestFromDirIncludeVendor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, root, "node_modules/dep/index.js", "export default 1;")

	files, err := loader.FromDir(root, loader.Options{IncludeVendor: true})
	require.NoError(t, err)
	assert.Contains(t, files, "node_modules/dep/index.js")
}

func TestFromDirMaxFileSize(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, root, "big.js", strings.Repeat("x", 2048))

	_, err := loader.FromDir(root, loader.Options{MaxFileSize: 1024})
	require.ErrorIs(t, err, loader.ErrFileTooLarge)
	assert.ErrorContains(t, err, "2.0 KiB")
}

func TestFromDirBinaryFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, root, "blob.js", "var a\x00\x01;")

	_, err := loader.FromDir(root, loader.Options{})
	require.ErrorIs(t, err, loader.ErrBinaryFile)
	assert.ErrorContains(t, err, "blob.js")
}

func TestFromDirMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := loader.FromDir(filepath.Join(t.TempDir(), "nope"), loader.Options{})
	require.Error(t, err)
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	n, err := loader.ParseSize("2 MiB")
	require.NoError(t, err)
	assert.Equal(t, uint64(2*1024*1024), n)

	n, err = loader.ParseSize("")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = loader.ParseSize("lots")
	require.Error(t, err)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	m, err := loader.ParseManifest([]byte(`{"entry":"main.js","files":{"main.js":"import './a';","./a.js":""}}`))
	require.NoError(t, err)
	assert.Equal(t, "main.js", m.Entry)
	assert.Len(t, m.Files, 2)

	m, err = loader.ReadManifest(strings.NewReader(`{"entry":"./a.js","files":{"a.js":""}}`))
	require.NoError(t, err)
	assert.Equal(t, "./a.js", m.Entry)
}

func TestParseManifestInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not json", `{`, ""},
		{"missing entry", `{"files":{"a.js":""}}`, "entry"},
		{"empty files", `{"entry":"a.js","files":{}}`, "files"},
		{"non string content", `{"entry":"a.js","files":{"a.js":1}}`, "a.js"},
		{"extra field", `{"entry":"a.js","files":{"a.js":""},"x":1}`, "x"},
		{"entry absent", `{"entry":"main.js","files":{"a.js":""}}`, "main.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loader.ParseManifest([]byte(tt.doc))
			require.ErrorIs(t, err, loader.ErrInvalidManifest)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
