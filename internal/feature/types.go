// Package feature defines the correspondence data model shared by the
// matching stages: keypoint sets, k-NN match candidates, and the accepted
// correspondences that feed geometric verification.
package feature

// Point is an image coordinate in pixels.
type Point struct {
	X float64
	Y float64
}

// Keypoint is a detected salient image location. Only the coordinate matters
// to the pipeline; scale and orientation are carried for the renderer.
type Keypoint struct {
	Point
	Size  float64
	Angle float64
}

// Set pairs detected keypoints index-for-index with their descriptors.
//
// Descriptors are opaque to the core (one row per keypoint, layout owned by
// the extractor/matcher adapters). A Set is immutable after creation and is
// superseded, never mutated, on each processed frame.
type Set struct {
	Keypoints   []Keypoint
	Descriptors Descriptors
}

// Descriptors is an opaque handle to a descriptor matrix, owned by whichever
// extractor produced it. The core only threads it between the extractor and
// the matcher.
type Descriptors interface {
	// Rows reports the number of descriptors (must equal len(Keypoints)).
	Rows() int
	// Close releases any resources backing the matrix.
	Close() error
}

// Len returns the number of keypoints in the set.
func (s Set) Len() int { return len(s.Keypoints) }

// Candidate is one ranked k-NN match candidate for a query descriptor: an
// index into the opposite Set plus the descriptor distance.
type Candidate struct {
	Index    int
	Distance float64
}

// Candidates holds the ranked candidate list for a single query descriptor,
// ordered by ascending distance.
type Candidates []Candidate

// Correspondence is a single accepted pairing between a query descriptor and
// its matched descriptor in the train set.
//
// The pipeline queries with the reference image and trains on the scene, so
// QueryIdx indexes the reference Set and TrainIdx the scene Set.
type Correspondence struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}
