package vision

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/feature"
)

// TestKeyPointRoundTrip preserves coordinates, size and angle through the
// gocv conversion in both directions.
func TestKeyPointRoundTrip(t *testing.T) {
	in := []gocv.KeyPoint{
		{X: 1.5, Y: 2.5, Size: 3, Angle: 45},
		{X: 100, Y: 200, Size: 7, Angle: 0},
	}

	kps := fromKeyPoints(in)
	if len(kps) != 2 {
		t.Fatalf("got %d keypoints, want 2", len(kps))
	}
	if kps[0].X != 1.5 || kps[0].Y != 2.5 || kps[0].Size != 3 || kps[0].Angle != 45 {
		t.Errorf("first keypoint = %+v", kps[0])
	}

	back := toKeyPoints(kps)
	for i := range in {
		if back[i].X != in[i].X || back[i].Y != in[i].Y || back[i].Size != in[i].Size {
			t.Errorf("keypoint %d round-trip = %+v, want %+v", i, back[i], in[i])
		}
	}
}

// TestToDMatches maps correspondences onto query/train indices with their
// distances.
func TestToDMatches(t *testing.T) {
	ms := []feature.Correspondence{
		{QueryIdx: 3, TrainIdx: 8, Distance: 0.25},
		{QueryIdx: 1, TrainIdx: 2, Distance: 1.5},
	}
	dms := toDMatches(ms)
	if len(dms) != 2 {
		t.Fatalf("got %d matches, want 2", len(dms))
	}
	if dms[0].QueryIdx != 3 || dms[0].TrainIdx != 8 || dms[0].Distance != 0.25 {
		t.Errorf("first DMatch = %+v", dms[0])
	}
	if dms[1].QueryIdx != 1 || dms[1].TrainIdx != 2 {
		t.Errorf("second DMatch = %+v", dms[1])
	}
}
