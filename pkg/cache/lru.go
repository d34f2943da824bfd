// Package cache keeps parsed modules across bundle passes so that files whose
// content did not change are not parsed again.
package cache

import (
	"container/list"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Sumatoshi-tech/jsbundle/pkg/jsparse"
)

// DefaultParseCacheSize is the source byte budget used when none is given.
const DefaultParseCacheSize = 64 << 20

// evictionWindow is how many least recently used entries compete when
// room is needed.
const evictionWindow = 5

// ParseCache is an LRU of parsed modules keyed by file path. An entry is
// only served while its content hash matches the source asked about.
// Cached modules are shared and must be treated as read-only.
type ParseCache struct {
	mu     sync.Mutex
	order  *list.List // front is most recently used.
	byPath map[string]*list.Element
	budget int64
	used   int64
	hits   int64
	misses int64
}

type entry struct {
	path   string
	sum    uint64
	module *jsparse.Module
	size   int64
	uses   int64
}

// worth ranks entries for eviction: hits per KiB of source, so a large
// file read once goes before a small hot one.
func (e *entry) worth() float64 {
	return float64(e.uses) / max(float64(e.size)/1024, 1)
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate is Hits over lookups, zero before the first lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Sum is the content hash entries are validated with.
func Sum(src string) uint64 {
	return xxhash.Sum64String(src)
}

// NewParseCache creates a cache holding at most maxSize bytes of source.
// A non-positive maxSize selects DefaultParseCacheSize.
func NewParseCache(maxSize int64) *ParseCache {
	if maxSize <= 0 {
		maxSize = DefaultParseCacheSize
	}

	return &ParseCache{order: list.New(), byPath: make(map[string]*list.Element), budget: maxSize}
}

// Get returns the module parsed from src at path, if cached.
func (c *ParseCache) Get(path, src string) (*jsparse.Module, bool) {
	sum := Sum(src)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byPath[path]
	if !ok || el.Value.(*entry).sum != sum {
		c.misses++

		return nil, false
	}

	c.hits++

	e := el.Value.(*entry)
	e.uses++
	c.order.MoveToFront(el)

	return e.module, true
}

// Put stores mod as the parse of src at path, replacing older content.
// Sources larger than the whole budget are not stored.
func (c *ParseCache) Put(path, src string, mod *jsparse.Module) {
	size := int64(len(src))
	if mod == nil || size > c.budget {
		return
	}

	e := &entry{path: path, sum: Sum(src), module: mod, size: size, uses: 1}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.drop(path)

	for c.used+size > c.budget && c.order.Len() > 0 {
		c.evict()
	}

	c.byPath[path] = c.order.PushFront(e)
	c.used += size
}

// Parse returns the cached module for src or parses and stores it. Parse
// errors are not cached.
func (c *ParseCache) Parse(path, src string) (*jsparse.Module, error) {
	if mod, ok := c.Get(path, src); ok {
		return mod, nil
	}

	mod, err := jsparse.Parse(path, src)
	if err != nil {
		return nil, err
	}

	c.Put(path, src, mod)

	return mod, nil
}

// Invalidate drops the entry for path.
func (c *ParseCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drop(path)
}

// Clear drops every entry. Counters are kept.
func (c *ParseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.byPath)
	c.used = 0
}

// Stats returns the current counters.
func (c *ParseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Entries:     c.order.Len(),
		CurrentSize: c.used,
		MaxSize:     c.budget,
	}
}

func (c *ParseCache) drop(path string) {
	if el, ok := c.byPath[path]; ok {
		c.removeElement(el)
	}
}

func (c *ParseCache) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.byPath, e.path)
	c.used -= e.size
}

// evict removes the least worthy of the evictionWindow oldest entries.
func (c *ParseCache) evict() {
	victim := c.order.Back()

	for el, n := victim.Prev(), 1; el != nil && n < evictionWindow; el, n = el.Prev(), n+1 {
		if el.Value.(*entry).worth() < victim.Value.(*entry).worth() {
			victim = el
		}
	}

	c.removeElement(victim)
}
