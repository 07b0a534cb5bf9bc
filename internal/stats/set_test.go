package stats

import "testing"

// TestSetRegistrationOrder verifies names are reported in registration order
// and duplicate registration returns the original index.
func TestSetRegistrationOrder(t *testing.T) {
	s := NewSet()

	resize := s.Register("resize")
	detect := s.Register("detect")
	match := s.Register("match")

	if resize != 0 || detect != 1 || match != 2 {
		t.Fatalf("indices = %d/%d/%d, want 0/1/2", resize, detect, match)
	}
	if again := s.Register("detect"); again != detect {
		t.Errorf("re-registering returned %d, want %d", again, detect)
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}

	want := []string{"resize", "detect", "match"}
	names := s.Names()
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

// TestSetAddAndClear verifies samples land in the right accumulator and
// Clear resets all members while keeping registrations.
func TestSetAddAndClear(t *testing.T) {
	s := NewSet()
	a := s.Register("a")
	b := s.Register("b")

	s.Add(a, 2)
	s.Add(a, 4)
	s.Add(b, 10)

	if got := s.At(a).Mean(); got != 3 {
		t.Errorf("a mean = %v, want 3", got)
	}
	if got := s.At(b).Count(); got != 1 {
		t.Errorf("b count = %d, want 1", got)
	}

	s.Clear()

	if s.Len() != 2 {
		t.Fatalf("Len after Clear = %d, want 2", s.Len())
	}
	if s.At(a).Count() != 0 || s.At(b).Count() != 0 {
		t.Error("accumulators not reset by Clear")
	}

	s.Add(b, 7)
	if got := s.At(b).Mean(); got != 7 {
		t.Errorf("b mean after Clear+Add = %v, want 7", got)
	}
}
