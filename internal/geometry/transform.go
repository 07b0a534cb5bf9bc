// Package geometry estimates and applies the planar projective transform
// that maps reference-image coordinates into the scene.
package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/visiona/spotter/internal/feature"
)

// Transform is a 3x3 planar projective mapping from reference coordinates
// to scene coordinates. The zero value is the explicit "none" state.
type Transform struct {
	m *mat.Dense // 3x3, nil when no transform exists
}

// NewTransform builds a Transform from row-major 3x3 coefficients.
func NewTransform(coeffs [9]float64) Transform {
	return Transform{m: mat.NewDense(3, 3, coeffs[:])}
}

// Identity returns the identity transform.
func Identity() Transform {
	return NewTransform([9]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// Valid reports whether the transform holds a matrix.
func (t Transform) Valid() bool { return t.m != nil }

// At returns the coefficient at row i, column j.
func (t Transform) At(i, j int) float64 { return t.m.At(i, j) }

// Apply maps a reference-image point into scene coordinates, performing the
// projective divide. Points on the plane at infinity (w == 0) map to the
// origin; RANSAC-verified homographies of real scenes do not produce them
// for in-image points.
func (t Transform) Apply(p feature.Point) feature.Point {
	v := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var out mat.VecDense
	out.MulVec(t.m, v)

	w := out.AtVec(2)
	if w == 0 {
		return feature.Point{}
	}
	return feature.Point{X: out.AtVec(0) / w, Y: out.AtVec(1) / w}
}

// ProjectQuad maps the axis-aligned rectangle (0,0)-(w-1,h-1) through the
// transform, returning the located quadrilateral's corners in scene
// coordinates, counter-clockwise from the top-left.
func (t Transform) ProjectQuad(w, h int) [4]feature.Point {
	fw, fh := float64(w-1), float64(h-1)
	corners := [4]feature.Point{
		{X: 0, Y: 0},
		{X: 0, Y: fh},
		{X: fw, Y: fh},
		{X: fw, Y: 0},
	}
	for i, c := range corners {
		corners[i] = t.Apply(c)
	}
	return corners
}

// EqualApprox reports whether two transforms match within tol, after
// normalizing each by its bottom-right coefficient (homographies are defined
// up to scale).
func (t Transform) EqualApprox(u Transform, tol float64) bool {
	if !t.Valid() || !u.Valid() {
		return t.Valid() == u.Valid()
	}
	a, b := normalize(t.m), normalize(u.m)
	return mat.EqualApprox(a, b, tol)
}

func normalize(m *mat.Dense) *mat.Dense {
	s := m.At(2, 2)
	if s == 0 {
		return m
	}
	var out mat.Dense
	out.Scale(1/s, m)
	return &out
}

// String renders the three coefficient rows in the interval-report format.
func (t Transform) String() string {
	if !t.Valid() {
		return "| none |"
	}
	return fmt.Sprintf(
		"| %+8.2f %+8.2f %+8.2f |\n| %+8.2f %+8.2f %+8.2f |\n| %+8.2f %+8.2f %+8.2f |",
		t.m.At(0, 0), t.m.At(0, 1), t.m.At(0, 2),
		t.m.At(1, 0), t.m.At(1, 1), t.m.At(1, 2),
		t.m.At(2, 0), t.m.At(2, 1), t.m.At(2, 2),
	)
}
