// Package filetable holds the in-memory source files a bundle is built from.
package filetable

import (
	"maps"
	"slices"
	"sync"
)

// Table maps file paths to source text. It is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	files map[string]string
}

// New creates an empty table.
func New() *Table {
	return &Table{files: make(map[string]string)}
}

// FromMap creates a table holding a copy of files.
func FromMap(files map[string]string) *Table {
	return &Table{files: maps.Clone(files)}
}

// Save inserts or overwrites path.
func (t *Table) Save(path, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.files == nil {
		t.files = make(map[string]string)
	}

	t.files[path] = content
}

// Delete removes path. It reports whether the path was present.
func (t *Table) Delete(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.files[path]
	delete(t.files, path)

	return ok
}

// Get returns the content stored for path.
func (t *Table) Get(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	content, ok := t.files[path]

	return content, ok
}

// Exists reports whether path is present.
func (t *Table) Exists(path string) bool {
	_, ok := t.Get(path)

	return ok
}

// Len returns the number of files.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.files)
}

// Paths returns all paths in sorted order.
func (t *Table) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Sorted(maps.Keys(t.files))
}

// Snapshot returns an independent copy of the table.
func (t *Table) Snapshot() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Table{files: maps.Clone(t.files)}
}

// Map returns a copy of the table contents.
func (t *Table) Map() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return maps.Clone(t.files)
}
