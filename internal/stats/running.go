// Package stats provides constant-memory online statistics for pipeline
// stage timings.
//
// A Running accumulator ingests a scalar sample stream and reports count,
// mean, variance, standard deviation, standard error and min/max without
// retaining the samples themselves (Welford's incremental method, which is
// also robust to catastrophic cancellation). A Set groups named accumulators
// so the whole reporting window can be cleared together.
package stats

import "math"

// Running is a constant-memory accumulator over a scalar sample stream.
//
// Invariants:
//   - N >= 0; with zero samples every derived quantity is 0
//   - with one sample, variance and standard error are 0 (no second sample)
//
// NaN input propagates NaN through mean/S per standard floating-point
// semantics; callers feed finite stage timings, so this is accepted rather
// than corrected.
//
// The zero value is ready to use. Not safe for concurrent use; the pipeline
// loop is the only mutator.
type Running struct {
	n    uint64
	mean float64
	s    float64 // sum of squared deviations from the mean
	min  float64
	max  float64
}

// Add ingests one sample.
func (r *Running) Add(x float64) {
	r.n++

	if r.n == 1 {
		r.min, r.mean, r.max = x, x, x
		r.s = 0
		return
	}

	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.s += delta * (x - r.mean)

	if x < r.min {
		r.min = x
	}
	if x > r.max {
		r.max = x
	}
}

// Count returns the number of samples ingested since the last Clear.
func (r *Running) Count() uint64 { return r.n }

// Mean returns the running mean, or 0 with no samples.
func (r *Running) Mean() float64 { return r.mean }

// Min returns the smallest sample seen, or 0 with no samples.
func (r *Running) Min() float64 { return r.min }

// Max returns the largest sample seen, or 0 with no samples.
func (r *Running) Max() float64 { return r.max }

// Sum returns mean*N, avoiding a separate running total.
func (r *Running) Sum() float64 { return r.mean * float64(r.n) }

// Variance returns the sample variance S/(N-1), or 0 with fewer than two
// samples (undefined, reported as 0 by convention so early reporting windows
// stay monotonic).
func (r *Running) Variance() float64 {
	if r.n > 1 {
		return r.s / float64(r.n-1)
	}
	return 0
}

// StdDev returns the sample standard deviation.
func (r *Running) StdDev() float64 { return math.Sqrt(r.Variance()) }

// StdErr returns the standard error of the mean, sqrt(Variance/N), or 0 with
// fewer than two samples.
func (r *Running) StdErr() float64 {
	if r.n > 1 {
		return math.Sqrt(r.Variance() / float64(r.n))
	}
	return 0
}

// Clear discards all history; the accumulator behaves like a fresh value.
func (r *Running) Clear() {
	*r = Running{}
}
