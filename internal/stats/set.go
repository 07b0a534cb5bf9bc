package stats

// Set is an ordered collection of named Running accumulators.
//
// Registration order is preserved so interval reports always list stages in
// the same order. Lookup is by the integer index returned at registration
// (the hot path adds samples once per frame and should not hash strings).
//
// Not safe for concurrent use; owned by the pipeline loop.
type Set struct {
	names   []string
	indices map[string]int
	running []Running
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{indices: make(map[string]int)}
}

// Register adds a named accumulator and returns its index. Registering an
// existing name returns the original index.
func (s *Set) Register(name string) int {
	if idx, ok := s.indices[name]; ok {
		return idx
	}
	idx := len(s.running)
	s.indices[name] = idx
	s.names = append(s.names, name)
	s.running = append(s.running, Running{})
	return idx
}

// Add ingests a sample into the accumulator at idx.
func (s *Set) Add(idx int, x float64) {
	s.running[idx].Add(x)
}

// At returns the accumulator at idx.
func (s *Set) At(idx int) *Running {
	return &s.running[idx]
}

// Names returns the registered names in registration order. The returned
// slice is owned by the Set and must not be modified.
func (s *Set) Names() []string { return s.names }

// Len returns the number of registered accumulators.
func (s *Set) Len() int { return len(s.running) }

// Clear resets every accumulator in the set, keeping registrations.
func (s *Set) Clear() {
	for i := range s.running {
		s.running[i].Clear()
	}
}
