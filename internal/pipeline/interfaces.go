// Package pipeline drives the per-frame recognition loop: acquisition,
// conditional detection/matching/localization, rendering, and interval
// reporting. The expensive vision capabilities are opaque collaborators
// behind the interfaces in this file; adapter packages own the concrete
// image representation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/geometry"
)

// ErrEndOfStream is returned by FrameSource.Next when the source is
// exhausted. It is a normal termination signal, not a failure.
var ErrEndOfStream = errors.New("end of stream")

// Image is an opaque frame payload. The concrete type is owned by the
// adapter that produced it; the loop only threads it between collaborators
// and releases it when the frame is superseded.
type Image interface {
	Width() int
	Height() int
	Close() error
}

// Frame is one acquired image plus its pipeline identity.
type Frame struct {
	// Seq is the source-assigned monotonic sequence number.
	Seq uint64
	// Timestamp is when the frame was captured or loaded.
	Timestamp time.Time
	// TraceID correlates log lines for one frame across stages.
	TraceID string
	Image   Image
}

// FrameSource yields frames from a live device, a stream, or a static file.
type FrameSource interface {
	// Next blocks until a frame is available, ctx is cancelled, or the
	// source ends (ErrEndOfStream). A static file source re-loads the same
	// input on every call.
	Next(ctx context.Context) (Frame, error)
	// Streaming distinguishes live capture (Mode A, frame skipping applies)
	// from a static input (Mode B, single-shot).
	Streaming() bool
	Close() error
}

// FeatureExtractor detects keypoints and computes their descriptors.
// An image with zero detectable features yields an empty set, not an error.
type FeatureExtractor interface {
	Detect(img Image) (feature.Set, error)
}

// NeighborMatcher performs k-nearest-neighbor descriptor search, returning
// one ranked candidate list per query descriptor.
type NeighborMatcher interface {
	KNNMatch(query, train feature.Set, k int) ([]feature.Candidates, error)
}

// Resizer scales a frame by a configured factor. Only wired when the
// configured scale differs from 1.0; its cost is timed as the resize stage.
type Resizer interface {
	Resize(img Image) (Image, error)
}

// View is everything the renderer needs for one frame: the scene, the
// features and correspondences from the most recent expensive pass, and the
// (possibly carried-forward) localization result.
type View struct {
	Frame   Frame
	Scene   feature.Set
	Matches []feature.Correspondence
	Result  geometry.Result
}

// Renderer presents a composited view: overlay plus located-region outline
// and match visualization when a transform exists, side-by-side otherwise.
// quit reports a user stop request (key press); for a static source Present
// blocks until the user acknowledges.
type Renderer interface {
	Present(view View) (quit bool, err error)
	Close() error
}

// Reporter consumes one interval report. Implementations format it to the
// console or publish it to a broker; the loop does not depend on a result.
type Reporter interface {
	Emit(Report)
}
