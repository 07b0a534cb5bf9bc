package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/geometry"
	"github.com/visiona/spotter/internal/pipeline"
)

const windowTitle = "Good Matches"

// streamWaitMS is the per-frame key poll for streaming sources; a static
// source waits indefinitely for the acknowledgment.
const streamWaitMS = 30

var (
	outlineColor = color.RGBA{B: 255}
	matchColor   = color.RGBA{G: 255}
)

// WindowRenderer composites and displays the per-frame view in an OpenCV
// window. With a transform it warps the overlay onto the located region,
// outlines the located quadrilateral and draws the matched keypoint pairs;
// without one it shows reference and scene side by side.
//
// The renderer borrows the reference image, which must outlive it and stays
// owned by the caller. The optional overlay is handed over: the renderer
// owns it and releases it on Close.
type WindowRenderer struct {
	window    *gocv.Window
	ref       gocv.Mat // borrowed from the caller
	refKps    []gocv.KeyPoint
	overlay   gocv.Mat // owned; empty when no superposition was configured
	streaming bool
}

// NewWindowRenderer creates the output window. overlay may be nil; when
// present it must already be resized to the reference dimensions.
func NewWindowRenderer(ref *Image, refSet feature.Set, overlay *Image, streaming bool) *WindowRenderer {
	r := &WindowRenderer{
		window:    gocv.NewWindow(windowTitle),
		ref:       ref.Mat(),
		refKps:    toKeyPoints(refSet.Keypoints),
		overlay:   gocv.NewMat(),
		streaming: streaming,
	}
	if overlay != nil {
		r.overlay.Close()
		r.overlay = overlay.Mat()
	}
	return r
}

// Present draws the view and polls for the user stop signal. For a static
// source it blocks until a key is pressed; the scheduler then terminates the
// single-shot pass, so quit stays false.
func (r *WindowRenderer) Present(v pipeline.View) (bool, error) {
	scene, err := matOf(v.Frame.Image)
	if err != nil {
		return false, err
	}

	out := gocv.NewMat()
	defer out.Close()

	if v.Result.HaveTransform {
		if err := r.composite(scene, v, &out); err != nil {
			return false, err
		}
	} else {
		if err := r.sideBySide(scene, &out); err != nil {
			return false, err
		}
	}

	r.window.IMShow(out)

	if r.streaming {
		return r.window.WaitKey(streamWaitMS) >= 0, nil
	}
	r.window.WaitKey(0)
	return false, nil
}

// composite renders the located-target view: warped overlay, quadrilateral
// outline, and the reference→scene match visualization.
func (r *WindowRenderer) composite(scene gocv.Mat, v pipeline.View, out *gocv.Mat) error {
	canvas := scene.Clone()
	defer canvas.Close()

	if !r.overlay.Empty() {
		warped := gocv.NewMat()
		h := transformMat(v.Result.Transform)
		gocv.WarpPerspective(r.overlay, &warped, h, image.Pt(scene.Cols(), scene.Rows()))
		gocv.Add(canvas, warped, &canvas)
		warped.Close()
		h.Close()
	}

	quad := v.Result.Transform.ProjectQuad(r.ref.Cols(), r.ref.Rows())
	pts := make([]image.Point, len(quad))
	for i, p := range quad {
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}
	outline := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	gocv.Polylines(&canvas, outline, true, outlineColor, 3)
	outline.Close()

	gocv.DrawMatches(r.ref, r.refKps, canvas, toKeyPoints(v.Scene.Keypoints),
		toDMatches(v.Matches), out, matchColor, matchColor, nil, gocv.DrawDefault)
	return nil
}

// sideBySide mimics the DrawMatches layout without matches: reference on the
// left, scene on the right, on a canvas sized for both.
func (r *WindowRenderer) sideBySide(scene gocv.Mat, out *gocv.Mat) error {
	rows := r.ref.Rows()
	if scene.Rows() > rows {
		rows = scene.Rows()
	}
	cols := r.ref.Cols() + scene.Cols()

	if r.ref.Type() != scene.Type() {
		return fmt.Errorf("reference and scene pixel formats differ (%d vs %d)", r.ref.Type(), scene.Type())
	}

	canvas := gocv.NewMatWithSize(rows, cols, scene.Type())
	defer canvas.Close()

	left := canvas.Region(image.Rect(0, 0, r.ref.Cols(), r.ref.Rows()))
	r.ref.CopyTo(&left)
	left.Close()

	right := canvas.Region(image.Rect(r.ref.Cols(), 0, cols, scene.Rows()))
	scene.CopyTo(&right)
	right.Close()

	canvas.CopyTo(out)
	return nil
}

// Close releases the window and the overlay. The borrowed reference image
// is left to its owner; closing it here would free the caller's matrix out
// from under its own Close.
func (r *WindowRenderer) Close() error {
	r.overlay.Close()
	if r.window == nil {
		return nil
	}
	return r.window.Close()
}

// transformMat converts a geometry.Transform to a 3x3 OpenCV matrix for
// warping. The caller owns the returned matrix.
func transformMat(t geometry.Transform) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, t.At(i, j))
		}
	}
	return m
}
