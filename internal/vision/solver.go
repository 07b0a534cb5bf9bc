package vision

import (
	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/geometry"
)

// RANSAC parameters for the homography fit.
const (
	// ransacReprojThreshold is the maximum reprojection error, in pixels,
	// for a point pair to count as an inlier.
	ransacReprojThreshold = 3.0
	ransacMaxIters        = 2000
	ransacConfidence      = 0.995
)

// HomographySolver estimates a planar projective transform from matched
// point pairs with OpenCV's RANSAC homography fit. It satisfies
// geometry.Solver.
type HomographySolver struct{}

// NewHomographySolver returns the solver; it holds no state.
func NewHomographySolver() *HomographySolver { return &HomographySolver{} }

// Estimate fits src→dst. A degenerate or ill-conditioned configuration
// yields ok=false rather than an error; the inlier mask is discarded, the
// pipeline only needs the transform.
func (s *HomographySolver) Estimate(src, dst []feature.Point) (geometry.Transform, bool) {
	if len(src) != len(dst) || len(src) < 4 {
		return geometry.Transform{}, false
	}

	srcMat := pointMat(src)
	defer srcMat.Close()
	dstMat := pointMat(dst)
	defer dstMat.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	h := gocv.FindHomography(srcMat, &dstMat, gocv.HomograpyMethodRANSAC,
		ransacReprojThreshold, &mask, ransacMaxIters, ransacConfidence)
	defer h.Close()

	if h.Empty() || h.Rows() != 3 || h.Cols() != 3 {
		return geometry.Transform{}, false
	}

	var coeffs [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			coeffs[i*3+j] = h.GetDoubleAt(i, j)
		}
	}
	return geometry.NewTransform(coeffs), true
}
