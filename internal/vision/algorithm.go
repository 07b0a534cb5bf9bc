package vision

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/pipeline"
)

// Algorithm families selectable at startup. SURF is absent: it
// is patent-encumbered and lives in the OpenCV contrib modules.
const (
	FamilySIFT  = "sift"
	FamilyORB   = "orb"
	FamilyAKAZE = "akaze"
	FamilyBRISK = "brisk"
)

// ORB tuning defaults, matching OpenCV's.
const (
	defaultORBFeatures     = 500
	orbScaleFactor         = 1.2
	orbLevels              = 8
	orbEdgeThreshold       = 31
	orbFirstLevel          = 0
	orbWTAK                = 2
	orbPatchSize           = 31
	orbFastThreshold       = 20
)

// detectAndComputer is the slice of the gocv detector API the extractor
// needs; every gocv feature detector satisfies it.
type detectAndComputer interface {
	DetectAndCompute(src gocv.Mat, mask gocv.Mat) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// knnMatcher is the slice of the gocv matcher API the adapter needs.
type knnMatcher interface {
	KnnMatch(query, train gocv.Mat, k int) [][]gocv.DMatch
	Close() error
}

// Algorithm bundles the detector and the matcher appropriate for its
// descriptor type, chosen once at configuration time and never re-dispatched
// per frame.
type Algorithm struct {
	Extractor *Extractor
	Matcher   *Matcher
}

// NewAlgorithm builds the detector/matcher pair for a family name. param is
// the family-specific numeric parameter (ORB feature count; ignored
// elsewhere). An unknown family is a fatal configuration error.
func NewAlgorithm(family string, param int) (*Algorithm, error) {
	switch family {
	case FamilySIFT:
		// SIFT produces float descriptors; FLANN's k-d tree is the
		// appropriate search structure.
		sift := gocv.NewSIFT()
		flann := gocv.NewFlannBasedMatcher()
		return &Algorithm{
			Extractor: newExtractor(&sift),
			Matcher:   newMatcher(&flann),
		}, nil
	case FamilyORB:
		if param <= 0 {
			param = defaultORBFeatures
		}
		orb := gocv.NewORBWithParams(
			param, orbScaleFactor, orbLevels, orbEdgeThreshold,
			orbFirstLevel, orbWTAK, gocv.ORBScoreTypeHarris,
			orbPatchSize, orbFastThreshold,
		)
		return &Algorithm{
			Extractor: newExtractor(&orb),
			Matcher:   newHammingMatcher(),
		}, nil
	case FamilyAKAZE:
		akaze := gocv.NewAKAZE()
		return &Algorithm{
			Extractor: newExtractor(&akaze),
			Matcher:   newHammingMatcher(),
		}, nil
	case FamilyBRISK:
		brisk := gocv.NewBRISK()
		return &Algorithm{
			Extractor: newExtractor(&brisk),
			Matcher:   newHammingMatcher(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm family %q (want sift, orb, akaze or brisk)", family)
	}
}

// newHammingMatcher returns a brute-force matcher for binary descriptors.
func newHammingMatcher() *Matcher {
	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	return newMatcher(&bf)
}

// Close releases the detector and matcher.
func (a *Algorithm) Close() error {
	err := a.Extractor.Close()
	if merr := a.Matcher.Close(); err == nil {
		err = merr
	}
	return err
}

// Extractor adapts a gocv feature detector to pipeline.FeatureExtractor.
type Extractor struct {
	detector detectAndComputer
	mask     gocv.Mat
}

func newExtractor(d detectAndComputer) *Extractor {
	return &Extractor{detector: d, mask: gocv.NewMat()}
}

// Detect computes keypoints and descriptors. A featureless image yields an
// empty set, which is a valid outcome.
func (e *Extractor) Detect(img pipeline.Image) (feature.Set, error) {
	m, err := matOf(img)
	if err != nil {
		return feature.Set{}, err
	}
	kps, desc := e.detector.DetectAndCompute(m, e.mask)
	return feature.Set{
		Keypoints:   fromKeyPoints(kps),
		Descriptors: &matDescriptors{mat: desc},
	}, nil
}

// Close releases the detector resources.
func (e *Extractor) Close() error {
	e.mask.Close()
	return e.detector.Close()
}

// Matcher adapts a gocv descriptor matcher to pipeline.NeighborMatcher.
type Matcher struct {
	matcher knnMatcher
}

func newMatcher(m knnMatcher) *Matcher {
	return &Matcher{matcher: m}
}

// KNNMatch returns the k best candidates per query descriptor, ranked by
// ascending distance. Empty descriptor sets short-circuit to an empty result
// rather than handing OpenCV a degenerate search.
func (m *Matcher) KNNMatch(query, train feature.Set, k int) ([]feature.Candidates, error) {
	qd, err := descriptorsOf(query)
	if err != nil {
		return nil, err
	}
	td, err := descriptorsOf(train)
	if err != nil {
		return nil, err
	}
	if qd.Rows() == 0 || td.Rows() == 0 {
		return nil, nil
	}

	raw := m.matcher.KnnMatch(qd.mat, td.mat, k)
	out := make([]feature.Candidates, len(raw))
	for i, ms := range raw {
		cands := make(feature.Candidates, len(ms))
		for j, dm := range ms {
			cands[j] = feature.Candidate{Index: dm.TrainIdx, Distance: dm.Distance}
		}
		out[i] = cands
	}
	return out, nil
}

// Close releases the matcher resources.
func (m *Matcher) Close() error { return m.matcher.Close() }

func descriptorsOf(s feature.Set) (*matDescriptors, error) {
	d, ok := s.Descriptors.(*matDescriptors)
	if !ok {
		return nil, fmt.Errorf("descriptors %T were not produced by a vision extractor", s.Descriptors)
	}
	return d, nil
}
