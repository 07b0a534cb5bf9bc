package feature

// DefaultRatio is Lowe's recommended ratio-test threshold.
const DefaultRatio = 0.7

// RatioFilter applies Lowe's ratio test to raw k-NN candidates: a query
// feature is accepted only when its best match is unambiguously better than
// its second-best (best.Distance < Ratio * second.Distance, strict).
//
// The filter keeps no state between frames beyond a reusable output buffer,
// which is re-sliced to empty at the start of every call so a new frame can
// never see correspondences left over from the previous one.
type RatioFilter struct {
	// Ratio is the acceptance threshold τ; zero means DefaultRatio.
	Ratio float64

	good []Correspondence
}

// NewRatioFilter returns a filter with the given threshold; ratio <= 0 falls
// back to DefaultRatio.
func NewRatioFilter(ratio float64) *RatioFilter {
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	return &RatioFilter{Ratio: ratio}
}

// Filter returns the correspondences passing the ratio test, in input order.
//
// Each candidate list is expected to hold the top-2 matches by ascending
// distance; a degenerate list with fewer than two entries is skipped rather
// than rejected, matching the tolerant behavior of the surrounding pipeline
// (a covered camera can legitimately starve the neighbor search).
//
// One train feature may appear in several correspondences; the filter does
// ratio testing only, not one-to-one assignment.
//
// The returned slice is valid until the next Filter call.
func (f *RatioFilter) Filter(all []Candidates) []Correspondence {
	ratio := f.Ratio
	if ratio <= 0 {
		ratio = DefaultRatio
	}

	// Clear the working set; stale entries must not leak into this frame.
	f.good = f.good[:0]

	for qi, cands := range all {
		if len(cands) < 2 {
			continue
		}
		best, second := cands[0], cands[1]
		if best.Distance < ratio*second.Distance {
			f.good = append(f.good, Correspondence{
				QueryIdx: qi,
				TrainIdx: best.Index,
				Distance: best.Distance,
			})
		}
	}
	return f.good
}
