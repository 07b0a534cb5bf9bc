// Package vision implements the pipeline's collaborator interfaces over
// OpenCV (gocv): feature detection, k-NN descriptor matching, RANSAC
// homography estimation, frame sources, resizing and window rendering.
//
// The concrete image representation is a gocv.Mat; the rest of the program
// only sees the opaque pipeline.Image.
package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/pipeline"
)

// Image wraps a gocv.Mat behind pipeline.Image.
type Image struct {
	mat gocv.Mat
}

// NewImage takes ownership of m.
func NewImage(m gocv.Mat) *Image {
	return &Image{mat: m}
}

// Width returns the image width in pixels.
func (i *Image) Width() int { return i.mat.Cols() }

// Height returns the image height in pixels.
func (i *Image) Height() int { return i.mat.Rows() }

// Close releases the underlying matrix.
func (i *Image) Close() error { return i.mat.Close() }

// Mat exposes the underlying matrix to the adapters in this package.
func (i *Image) Mat() gocv.Mat { return i.mat }

// matOf unwraps a pipeline.Image produced by this package.
func matOf(img pipeline.Image) (gocv.Mat, error) {
	wrapped, ok := img.(*Image)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("image %T was not produced by a vision source", img)
	}
	return wrapped.mat, nil
}

// LoadImage reads an image file, optionally converting to grayscale.
// An unreadable or empty file is an error; callers treat it as fatal at
// startup (reference, overlay) or end-of-input (static source).
func LoadImage(path string, grayscale bool) (*Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	if m.Empty() {
		return nil, fmt.Errorf("unable to open image %q", path)
	}
	if grayscale {
		gray := gocv.NewMat()
		gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
		m.Close()
		return NewImage(gray), nil
	}
	return NewImage(m), nil
}
