// Package stream acquires frames from an RTSP camera through GStreamer and
// hands them to the pipeline loop through a latest-frame mailbox. The
// decode chain runs at its own pace; frames the loop is too slow to take
// are dropped at the mailbox rather than queued.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/pipeline"
	"github.com/visiona/spotter/internal/vision"
)

const (
	busPollInterval = 50 * time.Millisecond
	maxRetries      = 5
	retryDelay      = time.Second
	maxRetryDelay   = 30 * time.Second
	stopTimeout     = 3 * time.Second
)

// Config describes the RTSP capture chain.
type Config struct {
	URL       string
	Width     int
	Height    int
	FPS       int
	Grayscale bool
}

// RTSPSource captures a live RTSP feed. It satisfies pipeline.FrameSource:
// Next delivers the most recent decoded frame, dropping anything the
// consumer missed.
type RTSPSource struct {
	cfg Config
	log *slog.Logger

	mailbox *Mailbox

	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq        uint64
	reconnects uint32
	retries    int
	started    time.Time
}

// NewRTSPSource validates the configuration and prepares a source. The
// GStreamer pipeline is not built until Start.
func NewRTSPSource(cfg Config, log *slog.Logger) (*RTSPSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rtsp url is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", cfg.FPS)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RTSPSource{
		cfg:     cfg,
		log:     log,
		mailbox: NewMailbox(),
	}, nil
}

// Start brings up the decode chain in a background goroutine and returns.
func (s *RTSPSource) Start(ctx context.Context) error {
	if s.cancel != nil {
		return fmt.Errorf("source already started")
	}

	gst.Init(nil)

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	s.wg.Add(1)
	go s.run(ctx)

	s.log.Info("rtsp source starting",
		"url", s.cfg.URL,
		"resolution", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"fps", s.cfg.FPS,
	)
	return nil
}

// Next implements pipeline.FrameSource.
func (s *RTSPSource) Next(ctx context.Context) (pipeline.Frame, error) {
	return s.mailbox.Take(ctx)
}

// Streaming implements pipeline.FrameSource.
func (s *RTSPSource) Streaming() bool { return true }

// Close stops the decode chain and releases any undelivered frame.
func (s *RTSPSource) Close() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("rtsp source stopped",
			"frames", atomic.LoadUint64(&s.seq),
			"dropped", s.mailbox.Drops(),
			"reconnects", atomic.LoadUint32(&s.reconnects),
			"uptime", time.Since(s.started),
		)
	case <-time.After(stopTimeout):
		s.log.Warn("rtsp source stop timeout")
	}
	s.mailbox.Close()
	return nil
}

// run keeps the capture connected until the context ends or retries are
// exhausted, backing off exponentially between attempts.
func (s *RTSPSource) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.mailbox.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.connectAndStream(ctx); err != nil {
			s.log.Error("rtsp capture error", "error", err)
		}
		if ctx.Err() != nil {
			return
		}

		s.retries++
		atomic.AddUint32(&s.reconnects, 1)
		if s.retries > maxRetries {
			s.log.Error("max retries exceeded, stopping capture",
				"retries", s.retries)
			return
		}

		delay := retryDelay * time.Duration(1<<uint(s.retries-1))
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		s.log.Warn("reconnecting to rtsp source", "retry", s.retries, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndStream builds the GStreamer graph, plays it, and pumps bus
// messages until EOS, error, or cancellation.
func (s *RTSPSource) connectAndStream(ctx context.Context) error {
	gst.Init(nil)

	gp, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// protocols=4 forces TCP transport.
	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return fmt.Errorf("failed to create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", s.cfg.URL)
	rtspsrc.SetProperty("protocols", 4)
	rtspsrc.SetProperty("latency", 200)

	depay, _ := gst.NewElement("rtph264depay")
	decode, _ := gst.NewElement("avdec_h264")
	convert, _ := gst.NewElement("videoconvert")
	scale, _ := gst.NewElement("videoscale")

	videorate, _ := gst.NewElement("videorate")
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	// BGR matches the pixel layout the detector expects.
	capsfilter, _ := gst.NewElement("capsfilter")
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=BGR,width=%d,height=%d,framerate=%d/1",
		s.cfg.Width, s.cfg.Height, s.cfg.FPS,
	))
	capsfilter.SetProperty("caps", caps)

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)
	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	gp.AddMany(rtspsrc, depay, decode, convert, scale, videorate, capsfilter, appsink.Element)
	gst.ElementLinkMany(depay, decode, convert, scale, videorate, capsfilter, appsink.Element)

	// rtspsrc pads appear only after SDP negotiation.
	rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		sinkPad := depay.GetStaticPad("sink")
		if sinkPad != nil {
			srcPad.Link(sinkPad)
		}
	})

	if err := gp.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to set pipeline to playing: %w", err)
	}

	bus := gp.GetPipelineBus()
	for {
		if ctx.Err() != nil {
			gp.SetState(gst.StateNull)
			return nil
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.log.Info("end of rtsp stream")
			gp.SetState(gst.StateNull)
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			gp.SetState(gst.StateNull)
			return fmt.Errorf("pipeline error: %w", gerr)

		case gst.MessageStateChanged:
			if msg.Source() == gp.GetName() {
				_, next := msg.ParseStateChanged()
				if next == gst.StatePlaying {
					s.retries = 0
					s.log.Info("rtsp source connected")
				}
			}
		}
	}
}

// onNewSample copies a decoded buffer into a Mat and deposits it in the
// mailbox.
func (s *RTSPSource) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowError
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	defer buffer.Unmap()
	if len(data) == 0 {
		return gst.FlowOK
	}

	// The buffer is owned by GStreamer; the Mat needs its own copy.
	pixels := make([]byte, len(data))
	copy(pixels, data)

	mat, err := gocv.NewMatFromBytes(s.cfg.Height, s.cfg.Width, gocv.MatTypeCV8UC3, pixels)
	if err != nil {
		s.log.Error("frame conversion failed", "error", err)
		return gst.FlowOK
	}
	if s.cfg.Grayscale {
		gray := gocv.NewMat()
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
		mat.Close()
		mat = gray
	}

	frame := pipeline.Frame{
		Seq:       atomic.AddUint64(&s.seq, 1),
		Timestamp: time.Now(),
		TraceID:   uuid.NewString(),
		Image:     vision.NewImage(mat),
	}
	s.mailbox.Put(frame)
	return gst.FlowOK
}
