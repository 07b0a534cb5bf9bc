package geometry

import "github.com/visiona/spotter/internal/feature"

// DefaultMinMatches is the default correspondence threshold below which
// verification is not attempted. Four point pairs are the algebraic minimum
// for a homography, so the gate requires strictly more than that.
const DefaultMinMatches = 4

// Solver estimates a projective transform from two equal-length coordinate
// sequences, paired index-for-index. ok is false on an ill-conditioned or
// insufficient input; that is a normal outcome, not an error.
type Solver interface {
	Estimate(src, dst []feature.Point) (Transform, bool)
}

// Result is the outcome of one localization attempt.
type Result struct {
	// HaveTransform is true only when the solver returned a matrix this
	// pass. When false, Transform is the "none" state.
	HaveTransform bool
	Transform     Transform
	// Matches is the number of correspondences the decision was based on.
	Matches int
}

// Localizer decides whether to attempt geometric verification and delegates
// the robust fit to its Solver.
type Localizer struct {
	solver Solver
	// MinMatches gates the attempt: strictly more correspondences than this
	// are required (not >=; with exactly MinMatches the solver is not
	// invoked).
	MinMatches int
}

// NewLocalizer returns a Localizer over the given solver. minMatches <= 0
// falls back to DefaultMinMatches.
func NewLocalizer(solver Solver, minMatches int) *Localizer {
	if minMatches <= 0 {
		minMatches = DefaultMinMatches
	}
	return &Localizer{solver: solver, MinMatches: minMatches}
}

// Localize maps each correspondence through its stored indices into parallel
// reference/scene point sequences and invokes the solver, provided the
// correspondence count exceeds MinMatches.
//
// Too few correspondences, or a solver that declines, simply yields
// HaveTransform=false; the pipeline renders side-by-side instead of the
// overlay. Neither FeatureSet nor the correspondences are mutated.
func (l *Localizer) Localize(ref, scene feature.Set, matches []feature.Correspondence) Result {
	res := Result{Matches: len(matches)}
	if len(matches) <= l.MinMatches {
		return res
	}

	src := make([]feature.Point, len(matches))
	dst := make([]feature.Point, len(matches))
	for i, m := range matches {
		src[i] = ref.Keypoints[m.QueryIdx].Point
		dst[i] = scene.Keypoints[m.TrainIdx].Point
	}

	if t, ok := l.solver.Estimate(src, dst); ok {
		res.HaveTransform = true
		res.Transform = t
	}
	return res
}
