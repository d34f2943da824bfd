package toposort

// symbols assigns dense IDs to node names in first-seen order. A Graph is
// built by one goroutine, so there is no locking.
type symbols struct {
	ids   map[string]int
	names []string
}

func newSymbols() *symbols {
	return &symbols{ids: make(map[string]int)}
}

func (s *symbols) intern(name string) int {
	if id, ok := s.ids[name]; ok {
		return id
	}

	id := len(s.names)
	s.ids[name] = id
	s.names = append(s.names, name)

	return id
}

func (s *symbols) lookup(name string) (int, bool) {
	id, ok := s.ids[name]

	return id, ok
}

// name returns "" for IDs it never handed out.
func (s *symbols) name(id int) string {
	if id < 0 || id >= len(s.names) {
		return ""
	}

	return s.names[id]
}
