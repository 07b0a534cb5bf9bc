package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/geometry"
	"github.com/visiona/spotter/internal/stats"
)

// Stage accumulator names, in report order.
const (
	stageResize = "resize"
	stageDetect = "detect"
	stageMatch  = "match"
	stageLocate = "locate"
	stageDraw   = "draw"
)

// MinSceneKeypoints gates matching: the scene must yield strictly more
// keypoints than this before descriptors are compared (a homography needs at
// least 4 point pairs with 3 non-colinear; a covered camera yields none).
const MinSceneKeypoints = 4

// DefaultReportInterval is the wall-clock window between interval reports.
const DefaultReportInterval = time.Second

// SchedulerConfig carries the per-frame policy knobs.
type SchedulerConfig struct {
	// EveryN runs the expensive stages on every Nth frame of a streaming
	// source (1 = every frame). Static sources always process.
	EveryN int
	// ReportInterval is the reporting window; zero means
	// DefaultReportInterval.
	ReportInterval time.Duration
}

// State is the loop-owned pipeline state, passed explicitly through each
// iteration so the control flow stays testable without ambient globals.
type State struct {
	// FrameNo counts every acquired frame since start.
	FrameNo uint64
	// WindowFrames counts frames in the current reporting window.
	WindowFrames uint64
	// WindowStart anchors the reporting window.
	WindowStart time.Time

	// Scene and Matches hold the output of the most recent expensive pass;
	// they are superseded, not mutated, by the next pass.
	Scene   feature.Set
	Matches []feature.Correspondence

	// Carry is the carried-forward localization result. Skipped frames
	// leave it untouched: the last computed transform keeps driving the
	// overlay until the next scheduled pass, even when stale.
	Carry geometry.Result

	// Width and Height record the dimensions of the last processed frame.
	Width  int
	Height int
}

// Scheduler is the single-threaded frame-processing state machine. It owns
// all pipeline state; no collaborator is invoked concurrently.
type Scheduler struct {
	source    FrameSource
	resizer   Resizer // nil when the configured scale is 1.0
	extractor FeatureExtractor
	matcher   NeighborMatcher
	filter    *feature.RatioFilter
	localizer *geometry.Localizer
	renderer  Renderer
	reporters []Reporter

	ref feature.Set // reference features, computed once at startup

	cfg      SchedulerConfig
	stageSet *stats.Set
	resize   int
	detect   int
	match    int
	locate   int
	draw     int

	log *slog.Logger
	now func() time.Time
}

// NewScheduler wires the loop. ref must already be preflighted (the caller
// fails fatally on a reference with too few keypoints).
func NewScheduler(
	source FrameSource,
	resizer Resizer,
	extractor FeatureExtractor,
	matcher NeighborMatcher,
	filter *feature.RatioFilter,
	localizer *geometry.Localizer,
	renderer Renderer,
	ref feature.Set,
	cfg SchedulerConfig,
	log *slog.Logger,
	reporters ...Reporter,
) *Scheduler {
	if cfg.EveryN < 1 {
		cfg.EveryN = 1
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = DefaultReportInterval
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		source:    source,
		resizer:   resizer,
		extractor: extractor,
		matcher:   matcher,
		filter:    filter,
		localizer: localizer,
		renderer:  renderer,
		reporters: reporters,
		ref:       ref,
		cfg:       cfg,
		stageSet:  stats.NewSet(),
		log:       log,
		now:       time.Now,
	}
	s.resize = s.stageSet.Register(stageResize)
	s.detect = s.stageSet.Register(stageDetect)
	s.match = s.stageSet.Register(stageMatch)
	s.locate = s.stageSet.Register(stageLocate)
	s.draw = s.stageSet.Register(stageDraw)
	return s
}

// Run drives the loop until the user quits, the source ends, or ctx is
// cancelled. A static source performs a single pass: the renderer blocks for
// the acknowledgment and the loop returns afterwards. No state survives
// termination.
func (s *Scheduler) Run(ctx context.Context) error {
	st := &State{WindowStart: s.now()}
	defer s.release(st)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := s.source.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			s.log.Info("source ended", "frames", st.FrameNo)
			return nil
		}
		if err != nil {
			return fmt.Errorf("acquire frame: %w", err)
		}

		quit, err := s.step(st, frame)
		if err != nil {
			return err
		}
		if quit {
			s.log.Info("stopped by user", "frames", st.FrameNo)
			return nil
		}
		if !s.source.Streaming() {
			// Single-shot semantics: the static pass has been rendered and
			// acknowledged inside step.
			return nil
		}
	}
}

// step processes one acquired frame through the state machine.
func (s *Scheduler) step(st *State, frame Frame) (quit bool, err error) {
	// The resize branch below swaps frame.Image; the deferred close must
	// release whichever image the frame holds on exit, not the original.
	defer func() { frame.Image.Close() }()

	st.FrameNo++
	st.WindowFrames++

	if s.resizer != nil {
		t0 := s.now()
		resized, rerr := s.resizer.Resize(frame.Image)
		if rerr != nil {
			return false, fmt.Errorf("resize frame %d: %w", frame.Seq, rerr)
		}
		s.stageSet.Add(s.resize, seconds(s.now().Sub(t0)))
		frame.Image.Close()
		frame.Image = resized
	}

	st.Width, st.Height = frame.Image.Width(), frame.Image.Height()

	if s.scheduled(st) {
		if err := s.process(st, frame); err != nil {
			return false, err
		}
	}

	t0 := s.now()
	quit, err = s.renderer.Present(View{
		Frame:   frame,
		Scene:   st.Scene,
		Matches: st.Matches,
		Result:  st.Carry,
	})
	if err != nil {
		return false, fmt.Errorf("render frame %d: %w", frame.Seq, err)
	}
	s.stageSet.Add(s.draw, seconds(s.now().Sub(t0)))

	s.maybeReport(st)
	return quit, nil
}

// scheduled reports whether this iteration runs the expensive stages: every
// iteration for a static source, every EveryNth frame when streaming.
func (s *Scheduler) scheduled(st *State) bool {
	if !s.source.Streaming() {
		return true
	}
	return st.FrameNo%uint64(s.cfg.EveryN) == 0
}

// process runs detection, matching and localization, overwriting the carried
// result. "Not enough keypoints", "not enough correspondences" and "solver
// declined" are normal outcomes that narrow which later stages run.
func (s *Scheduler) process(st *State, frame Frame) error {
	t0 := s.now()
	scene, err := s.extractor.Detect(frame.Image)
	if err != nil {
		return fmt.Errorf("detect frame %d: %w", frame.Seq, err)
	}
	s.stageSet.Add(s.detect, seconds(s.now().Sub(t0)))

	// Supersede the previous pass's features.
	if st.Scene.Descriptors != nil {
		st.Scene.Descriptors.Close()
	}
	st.Scene = scene
	st.Matches = nil

	if scene.Len() <= MinSceneKeypoints {
		st.Carry = geometry.Result{}
		s.log.Debug("scene too sparse",
			"trace_id", frame.TraceID,
			"keypoints", scene.Len(),
		)
		return nil
	}

	t0 = s.now()
	candidates, err := s.matcher.KNNMatch(s.ref, scene, 2)
	if err != nil {
		return fmt.Errorf("match frame %d: %w", frame.Seq, err)
	}
	st.Matches = s.filter.Filter(candidates)
	s.stageSet.Add(s.match, seconds(s.now().Sub(t0)))

	if len(st.Matches) > s.localizer.MinMatches {
		t0 = s.now()
		st.Carry = s.localizer.Localize(s.ref, scene, st.Matches)
		s.stageSet.Add(s.locate, seconds(s.now().Sub(t0)))
	} else {
		st.Carry = geometry.Result{Matches: len(st.Matches)}
	}

	s.log.Debug("processed frame",
		"trace_id", frame.TraceID,
		"keypoints", scene.Len(),
		"matches", len(st.Matches),
		"have_transform", st.Carry.HaveTransform,
	)
	return nil
}

// maybeReport emits an interval report and clears the window accumulators
// once the wall-clock window elapses. It can fire on any iteration,
// independent of which stages ran.
func (s *Scheduler) maybeReport(st *State) {
	elapsed := s.now().Sub(st.WindowStart)
	if elapsed < s.cfg.ReportInterval {
		return
	}

	rep := NewReport(s.stageSet, st.WindowFrames, elapsed, len(st.Matches), st.Width, st.Height, st.Carry)
	for _, r := range s.reporters {
		r.Emit(rep)
	}

	s.stageSet.Clear()
	st.WindowFrames = 0
	st.WindowStart = s.now()
}

// release frees the descriptors still held when the loop exits.
func (s *Scheduler) release(st *State) {
	if st.Scene.Descriptors != nil {
		st.Scene.Descriptors.Close()
	}
}

// seconds converts a stage duration to float64 seconds for accumulation.
func seconds(d time.Duration) float64 { return d.Seconds() }
