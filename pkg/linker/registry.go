package linker

import "strconv"

// registry hands out output identifiers for one link pass. A name is free
// when no earlier claim took it and no module uses it unrenamed.
type registry struct {
	reserved map[string]struct{}
	taken    map[string]struct{}
	counters map[string]int
}

func newRegistry(reserved map[string]struct{}) *registry {
	return &registry{
		reserved: reserved,
		taken:    make(map[string]struct{}),
		counters: make(map[string]int),
	}
}

func (r *registry) free(name string) bool {
	_, reserved := r.reserved[name]
	_, taken := r.taken[name]

	return !reserved && !taken
}

// claim returns base if free, otherwise base$N with the next free N.
func (r *registry) claim(base string) string {
	name := base

	for !r.free(name) {
		r.counters[base]++
		name = base + "$" + strconv.Itoa(r.counters[base])
	}

	r.taken[name] = struct{}{}

	return name
}
