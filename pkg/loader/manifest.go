package loader

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

// ErrInvalidManifest is wrapped by every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is a whole bundle input in one JSON document:
// {"entry": "main.js", "files": {"main.js": "..."}}.
type Manifest struct {
	Entry string            `json:"entry"`
	Files map[string]string `json:"files"`
}

// ReadManifest decodes and validates a manifest from r.
func ReadManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(data)
}

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}

	var m Manifest

	err = json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if _, ok := m.Files[m.Entry]; !ok && !hasNormalized(m.Files, m.Entry) {
		return nil, fmt.Errorf("%w: entry %q is not among the files", ErrInvalidManifest, m.Entry)
	}

	return &m, nil
}

func hasNormalized(files map[string]string, entry string) bool {
	want := strings.TrimPrefix(entry, "./")

	for p := range files {
		if strings.TrimPrefix(p, "./") == want {
			return true
		}
	}

	return false
}
