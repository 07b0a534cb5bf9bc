package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/visiona/spotter/internal/geometry"
	"github.com/visiona/spotter/internal/stats"
)

// StageSummary is the per-stage slice of an interval report.
type StageSummary struct {
	Name string `json:"name" msgpack:"name"`
	// MeanSeconds is the mean stage duration over the window. Zero when the
	// stage did not run this window.
	MeanSeconds float64 `json:"mean_s" msgpack:"mean_s"`
	Samples     uint64  `json:"samples" msgpack:"samples"`
	StdDev      float64 `json:"stddev_s" msgpack:"stddev_s"`
}

// Report is one reporting window's summary. Building and formatting a Report
// has no side effects; emission is the reporters' concern.
type Report struct {
	// FPS is the instantaneous frame rate over the window: frames divided
	// by elapsed wall time, 0 when no time elapsed.
	FPS float64 `json:"fps" msgpack:"fps"`
	// PotentialFPS is the theoretical maximum rate were the loop bounded
	// only by the measured stages: 1 / sum of stage means. 0 when nothing
	// was measured.
	PotentialFPS float64 `json:"potential_fps" msgpack:"potential_fps"`
	// Frames is the number of frames acquired in the window.
	Frames  uint64        `json:"frames" msgpack:"frames"`
	Elapsed time.Duration `json:"elapsed_ns" msgpack:"elapsed_ns"`
	// Stages lists the five pipeline stages in registration order.
	Stages []StageSummary `json:"stages" msgpack:"stages"`
	// Matches is the correspondence count from the most recent expensive
	// pass.
	Matches int `json:"matches" msgpack:"matches"`
	Width   int `json:"width" msgpack:"width"`
	Height  int `json:"height" msgpack:"height"`
	// HaveTransform reports whether a transform was available at window
	// close; Transform holds its coefficients when true.
	HaveTransform bool       `json:"have_transform" msgpack:"have_transform"`
	Transform     [9]float64 `json:"transform,omitempty" msgpack:"transform,omitempty"`
}

// NewReport summarizes one reporting window from the stage accumulators.
func NewReport(set *stats.Set, frames uint64, elapsed time.Duration, matches, width, height int, res geometry.Result) Report {
	rep := Report{
		Frames:  frames,
		Elapsed: elapsed,
		Matches: matches,
		Width:   width,
		Height:  height,
	}

	if ns := elapsed.Nanoseconds(); ns > 0 {
		rep.FPS = float64(frames) * 1e9 / float64(ns)
	}

	sumMeans := 0.0
	names := set.Names()
	rep.Stages = make([]StageSummary, len(names))
	for i, name := range names {
		r := set.At(i)
		rep.Stages[i] = StageSummary{
			Name:        name,
			MeanSeconds: r.Mean(),
			Samples:     r.Count(),
			StdDev:      r.StdDev(),
		}
		sumMeans += r.Mean()
	}
	if sumMeans > 0 {
		rep.PotentialFPS = 1 / sumMeans
	}

	if res.HaveTransform {
		rep.HaveTransform = true
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rep.Transform[i*3+j] = res.Transform.At(i, j)
			}
		}
	}
	return rep
}

// Format renders the one-line summary, plus the 3x3 coefficients when a
// transform was produced this window.
func (r Report) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%5.1f fps : ", r.FPS)
	for _, st := range r.Stages {
		fmt.Fprintf(&b, "%s %.2g ms : ", st.Name, st.MeanSeconds*1e3)
	}
	fmt.Fprintf(&b, "%d good matches in %dx%d frame (potential %g fps)",
		r.Matches, r.Width, r.Height, r.PotentialFPS)

	if r.HaveTransform {
		b.WriteByte('\n')
		b.WriteString(geometry.NewTransform(r.Transform).String())
	}
	return b.String()
}
