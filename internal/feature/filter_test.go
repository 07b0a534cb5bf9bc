package feature

import "testing"

func pair(best, second float64) Candidates {
	return Candidates{
		{Index: 0, Distance: best},
		{Index: 1, Distance: second},
	}
}

// TestRatioFilterBoundary pins the acceptance boundary at the default
// threshold: 1.0 < 0.7*2.0 accepts, 1.5 < 0.7*2.0 rejects.
func TestRatioFilterBoundary(t *testing.T) {
	f := NewRatioFilter(0.7)

	if got := f.Filter([]Candidates{pair(1.0, 2.0)}); len(got) != 1 {
		t.Errorf("pair (1.0, 2.0): got %d correspondences, want 1", len(got))
	}
	if got := f.Filter([]Candidates{pair(1.5, 2.0)}); len(got) != 0 {
		t.Errorf("pair (1.5, 2.0): got %d correspondences, want 0", len(got))
	}

	// Exactly at the threshold is a rejection (strict less-than).
	if got := f.Filter([]Candidates{pair(1.4, 2.0)}); len(got) != 0 {
		t.Errorf("pair (1.4, 2.0): got %d correspondences, want 0 (strict <)", len(got))
	}
}

// TestRatioFilterStableOrderAndIndices verifies output follows input order
// and records the query position and best-candidate train index.
func TestRatioFilterStableOrderAndIndices(t *testing.T) {
	f := NewRatioFilter(0.7)

	all := []Candidates{
		{{Index: 7, Distance: 1.0}, {Index: 3, Distance: 2.0}},  // accept
		{{Index: 2, Distance: 1.9}, {Index: 8, Distance: 2.0}},  // reject
		{{Index: 5, Distance: 0.5}, {Index: 1, Distance: 10.0}}, // accept
	}
	got := f.Filter(all)

	if len(got) != 2 {
		t.Fatalf("got %d correspondences, want 2", len(got))
	}
	if got[0].QueryIdx != 0 || got[0].TrainIdx != 7 || got[0].Distance != 1.0 {
		t.Errorf("first correspondence = %+v, want {0 7 1}", got[0])
	}
	if got[1].QueryIdx != 2 || got[1].TrainIdx != 5 {
		t.Errorf("second correspondence = %+v, want query 2 → train 5", got[1])
	}
}

// TestRatioFilterNoDeduplication allows one train feature to win several
// query features; assignment is not the filter's job.
func TestRatioFilterNoDeduplication(t *testing.T) {
	f := NewRatioFilter(0.7)

	all := []Candidates{
		{{Index: 4, Distance: 1.0}, {Index: 9, Distance: 2.0}},
		{{Index: 4, Distance: 0.9}, {Index: 2, Distance: 2.0}},
	}
	got := f.Filter(all)

	if len(got) != 2 {
		t.Fatalf("got %d correspondences, want 2", len(got))
	}
	if got[0].TrainIdx != 4 || got[1].TrainIdx != 4 {
		t.Errorf("train indices = %d/%d, want 4/4", got[0].TrainIdx, got[1].TrainIdx)
	}
}

// TestRatioFilterDegenerateCandidates skips query features with fewer than
// two candidates instead of failing.
func TestRatioFilterDegenerateCandidates(t *testing.T) {
	f := NewRatioFilter(0.7)

	all := []Candidates{
		{},
		{{Index: 1, Distance: 0.5}},
		pair(1.0, 2.0),
	}
	got := f.Filter(all)

	if len(got) != 1 {
		t.Fatalf("got %d correspondences, want 1", len(got))
	}
	if got[0].QueryIdx != 2 {
		t.Errorf("QueryIdx = %d, want 2", got[0].QueryIdx)
	}
}

// TestRatioFilterClearsBetweenCalls ensures a frame with no acceptances
// cannot surface the previous frame's correspondences.
func TestRatioFilterClearsBetweenCalls(t *testing.T) {
	f := NewRatioFilter(0.7)

	if got := f.Filter([]Candidates{pair(1.0, 2.0)}); len(got) != 1 {
		t.Fatalf("warm-up frame: got %d, want 1", len(got))
	}
	if got := f.Filter([]Candidates{pair(1.9, 2.0)}); len(got) != 0 {
		t.Errorf("second frame: got %d correspondences, want 0 (stale result leaked)", len(got))
	}
	if got := f.Filter(nil); len(got) != 0 {
		t.Errorf("empty frame: got %d correspondences, want 0", len(got))
	}
}

// TestRatioFilterDefaultThreshold checks the zero-value threshold falls back
// to Lowe's 0.7.
func TestRatioFilterDefaultThreshold(t *testing.T) {
	f := NewRatioFilter(0)
	if f.Ratio != DefaultRatio {
		t.Errorf("Ratio = %v, want %v", f.Ratio, DefaultRatio)
	}

	var zero RatioFilter
	if got := zero.Filter([]Candidates{pair(1.0, 2.0)}); len(got) != 1 {
		t.Errorf("zero-value filter: got %d, want 1", len(got))
	}
}
