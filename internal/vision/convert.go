package vision

import (
	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/feature"
)

// matDescriptors owns a gocv descriptor matrix behind feature.Descriptors.
type matDescriptors struct {
	mat gocv.Mat
}

func (d *matDescriptors) Rows() int    { return d.mat.Rows() }
func (d *matDescriptors) Close() error { return d.mat.Close() }

func fromKeyPoints(kps []gocv.KeyPoint) []feature.Keypoint {
	out := make([]feature.Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = feature.Keypoint{
			Point: feature.Point{X: kp.X, Y: kp.Y},
			Size:  kp.Size,
			Angle: kp.Angle,
		}
	}
	return out
}

func toKeyPoints(kps []feature.Keypoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle}
	}
	return out
}

func toDMatches(ms []feature.Correspondence) []gocv.DMatch {
	out := make([]gocv.DMatch, len(ms))
	for i, m := range ms {
		out[i] = gocv.DMatch{QueryIdx: m.QueryIdx, TrainIdx: m.TrainIdx, Distance: m.Distance}
	}
	return out
}

// pointMat packs coordinates into an Nx1 two-channel matrix, the layout
// FindHomography expects. The caller owns the returned matrix.
func pointMat(pts []feature.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV64FC2)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}
