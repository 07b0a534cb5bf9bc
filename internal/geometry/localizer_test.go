package geometry

import (
	"testing"

	"github.com/visiona/spotter/internal/feature"
)

// fakeSolver records invocations and returns a canned result.
type fakeSolver struct {
	calls     int
	src, dst  []feature.Point
	transform Transform
	ok        bool
}

func (f *fakeSolver) Estimate(src, dst []feature.Point) (Transform, bool) {
	f.calls++
	f.src, f.dst = src, dst
	return f.transform, f.ok
}

func setWithPoints(pts ...feature.Point) feature.Set {
	kps := make([]feature.Keypoint, len(pts))
	for i, p := range pts {
		kps[i] = feature.Keypoint{Point: p}
	}
	return feature.Set{Keypoints: kps}
}

func nMatches(n int) []feature.Correspondence {
	ms := make([]feature.Correspondence, n)
	for i := range ms {
		ms[i] = feature.Correspondence{QueryIdx: i, TrainIdx: i}
	}
	return ms
}

func gridSet(n int) feature.Set {
	pts := make([]feature.Point, n)
	for i := range pts {
		pts[i] = feature.Point{X: float64(i), Y: float64(i * 2)}
	}
	return setWithPoints(pts...)
}

// TestLocalizerStrictThreshold verifies the strict > gate: exactly
// minMatches correspondences never reach the solver, one more does.
func TestLocalizerStrictThreshold(t *testing.T) {
	solver := &fakeSolver{transform: Identity(), ok: true}
	loc := NewLocalizer(solver, 4)

	ref, scene := gridSet(6), gridSet(6)

	res := loc.Localize(ref, scene, nMatches(4))
	if solver.calls != 0 {
		t.Fatalf("solver invoked with exactly minMatches correspondences")
	}
	if res.HaveTransform {
		t.Error("HaveTransform = true without verification attempt")
	}
	if res.Matches != 4 {
		t.Errorf("Matches = %d, want 4", res.Matches)
	}

	res = loc.Localize(ref, scene, nMatches(5))
	if solver.calls != 1 {
		t.Fatalf("solver calls = %d, want 1", solver.calls)
	}
	if !res.HaveTransform {
		t.Error("HaveTransform = false after successful estimate")
	}
}

// TestLocalizerBelowAlgebraicMinimum never invokes the solver with fewer
// than four total points.
func TestLocalizerBelowAlgebraicMinimum(t *testing.T) {
	solver := &fakeSolver{transform: Identity(), ok: true}
	loc := NewLocalizer(solver, DefaultMinMatches)

	ref, scene := gridSet(4), gridSet(4)
	for n := 0; n <= 3; n++ {
		loc.Localize(ref, scene, nMatches(n))
	}
	if solver.calls != 0 {
		t.Errorf("solver calls = %d, want 0", solver.calls)
	}
}

// TestLocalizerPointPairing checks the index-for-index mapping of
// correspondences onto parallel reference/scene coordinate slices.
func TestLocalizerPointPairing(t *testing.T) {
	solver := &fakeSolver{transform: Identity(), ok: true}
	loc := NewLocalizer(solver, 4)

	ref := setWithPoints(
		feature.Point{X: 10, Y: 11}, feature.Point{X: 20, Y: 21},
		feature.Point{X: 30, Y: 31}, feature.Point{X: 40, Y: 41},
		feature.Point{X: 50, Y: 51}, feature.Point{X: 60, Y: 61},
	)
	scene := setWithPoints(
		feature.Point{X: 1, Y: 2}, feature.Point{X: 3, Y: 4},
		feature.Point{X: 5, Y: 6}, feature.Point{X: 7, Y: 8},
		feature.Point{X: 9, Y: 10}, feature.Point{X: 11, Y: 12},
	)

	// Deliberately permuted indices: query i pairs with train 5-i.
	matches := make([]feature.Correspondence, 5)
	for i := range matches {
		matches[i] = feature.Correspondence{QueryIdx: i, TrainIdx: 5 - i}
	}

	loc.Localize(ref, scene, matches)

	if len(solver.src) != 5 || len(solver.dst) != 5 {
		t.Fatalf("solver received %d/%d points, want 5/5", len(solver.src), len(solver.dst))
	}
	for i, m := range matches {
		if solver.src[i] != ref.Keypoints[m.QueryIdx].Point {
			t.Errorf("src[%d] = %v, want %v", i, solver.src[i], ref.Keypoints[m.QueryIdx].Point)
		}
		if solver.dst[i] != scene.Keypoints[m.TrainIdx].Point {
			t.Errorf("dst[%d] = %v, want %v", i, solver.dst[i], scene.Keypoints[m.TrainIdx].Point)
		}
	}
}

// TestLocalizerSolverDeclines reports no transform when the solver cannot
// fit one, without signaling an error.
func TestLocalizerSolverDeclines(t *testing.T) {
	solver := &fakeSolver{ok: false}
	loc := NewLocalizer(solver, 4)

	res := loc.Localize(gridSet(8), gridSet(8), nMatches(8))
	if res.HaveTransform {
		t.Error("HaveTransform = true after solver declined")
	}
	if res.Transform.Valid() {
		t.Error("Transform holds a matrix in the none state")
	}
	if solver.calls != 1 {
		t.Errorf("solver calls = %d, want 1", solver.calls)
	}
}

// TestLocalizerDefaultMinMatches verifies the <=0 fallback.
func TestLocalizerDefaultMinMatches(t *testing.T) {
	loc := NewLocalizer(&fakeSolver{}, 0)
	if loc.MinMatches != DefaultMinMatches {
		t.Errorf("MinMatches = %d, want %d", loc.MinMatches, DefaultMinMatches)
	}
}
