package vision

import (
	"testing"

	"gocv.io/x/gocv"
)

// TestRendererCloseLeavesReferenceToCaller verifies the ownership split: the
// renderer releases the overlay it was handed but never the borrowed
// reference, whose owner closes it afterwards.
func TestRendererCloseLeavesReferenceToCaller(t *testing.T) {
	ref := NewImage(gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3))
	overlay := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)

	r := &WindowRenderer{
		ref:     ref.Mat(),
		overlay: overlay,
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The reference must still be usable by its owner after the renderer
	// is gone.
	if got := ref.Width(); got != 8 {
		t.Errorf("reference width after renderer close = %d, want 8", got)
	}
	if err := ref.Close(); err != nil {
		t.Errorf("owner close: %v", err)
	}
}
