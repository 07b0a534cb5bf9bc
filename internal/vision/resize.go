package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/pipeline"
)

// ScaleResizer scales frames by a fixed factor (the `in=path:scale`
// decoration). It is only wired into the scheduler when the factor differs
// from 1.0, so its cost is only measured when real work happens.
type ScaleResizer struct {
	Scale float64
}

// NewScaleResizer returns a resizer for the given factor.
func NewScaleResizer(scale float64) *ScaleResizer {
	return &ScaleResizer{Scale: scale}
}

// Resize returns a new image scaled by the factor; the input remains owned
// by the caller.
func (r *ScaleResizer) Resize(img pipeline.Image) (pipeline.Image, error) {
	src, err := matOf(img)
	if err != nil {
		return nil, err
	}
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Point{}, r.Scale, r.Scale, gocv.InterpolationArea)
	return NewImage(dst), nil
}

// ResizeTo returns a copy of img at exactly width x height pixels. The
// superposition overlay is matched to the reference dimensions this way, so
// warping it by the located transform maps it onto the found region.
func ResizeTo(img *Image, width, height int) *Image {
	dst := gocv.NewMat()
	gocv.Resize(img.Mat(), &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)
	return NewImage(dst)
}
