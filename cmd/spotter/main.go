// Command spotter locates a reference image inside a live or static scene
// and reports per-stage timing at a fixed interval. The scene comes from a
// webcam, an RTSP stream, or an image file; the located region is outlined
// in a preview window and can be covered with a superposed image.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/visiona/spotter/internal/config"
	"github.com/visiona/spotter/internal/emitter"
	"github.com/visiona/spotter/internal/feature"
	"github.com/visiona/spotter/internal/geometry"
	"github.com/visiona/spotter/internal/pipeline"
	"github.com/visiona/spotter/internal/stream"
	"github.com/visiona/spotter/internal/vision"
)

func main() {
	find := flag.String("find", "", "Path of the reference image to locate (required)")
	in := flag.String("in", config.SourceWebcam, "Search source: webcam, rtsp://..., or an image path; append :scale to resize frames")
	using := flag.String("using", config.DefaultAlgorithm, "Feature algorithm: sift, orb, akaze, or brisk; append :param for the family parameter")
	superpose := flag.String("superpose", "", "Optional image composited onto the located region")
	minMatches := flag.Int("min", config.DefaultMinMatches, "Matches required before localization (strictly more must survive the ratio test)")
	every := flag.Int("every", config.DefaultEvery, "Run detection on every Nth streamed frame")
	ratio := flag.Float64("ratio", config.DefaultRatio, "Lowe ratio-test threshold")
	grayscale := flag.Bool("gray", false, "Convert the reference and every frame to grayscale before detection")
	reportEvery := flag.Int("report-interval", 1, "Statistics reporting interval in seconds")
	configPath := flag.String("config", "", "Path to an optional YAML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logJSON := flag.Bool("log-json", false, "Emit logs as JSON instead of text")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if *logJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags set on the command line override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "find":
			cfg.Find = *find
		case "in":
			source, scale, err := config.ParseSource(*in)
			if err != nil {
				flagErr = err
				return
			}
			cfg.In = source
			cfg.Scale = scale
		case "using":
			algo, err := config.ParseAlgorithm(*using)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Algorithm = algo
		case "superpose":
			cfg.Superpose = *superpose
		case "min":
			cfg.MinMatches = *minMatches
		case "every":
			cfg.Every = *every
		case "ratio":
			cfg.Ratio = *ratio
		case "gray":
			cfg.Grayscale = *grayscale
		case "report-interval":
			cfg.ReportIntervalS = *reportEvery
		}
	})
	if flagErr != nil {
		logger.Error("invalid flag value", "error", flagErr)
		os.Exit(1)
	}

	if err := config.Validate(&cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting spotter",
		"find", cfg.Find,
		"in", cfg.In,
		"algorithm", cfg.Algorithm.Family,
		"scale", cfg.Scale,
		"every", cfg.Every,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("spotter failed", "error", err)
		os.Exit(1)
	}
	logger.Info("spotter stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	algo, err := vision.NewAlgorithm(cfg.Algorithm.Family, cfg.Algorithm.Param)
	if err != nil {
		return err
	}
	defer algo.Close()

	ref, err := vision.LoadImage(cfg.Find, cfg.Grayscale)
	if err != nil {
		return err
	}
	defer ref.Close()

	// A reference with too few keypoints can never clear the match
	// threshold, so fail before opening any source.
	refSet, err := algo.Extractor.Detect(ref)
	if err != nil {
		return fmt.Errorf("reference feature detection: %w", err)
	}
	defer refSet.Descriptors.Close()
	if n := len(refSet.Keypoints); n <= cfg.MinMatches {
		return fmt.Errorf("reference image %q has %d keypoints, need more than %d", cfg.Find, n, cfg.MinMatches)
	}
	logger.Info("reference features computed",
		"path", cfg.Find,
		"keypoints", len(refSet.Keypoints),
	)

	source, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	var resizer pipeline.Resizer
	if cfg.Scale != 1.0 {
		resizer = vision.NewScaleResizer(cfg.Scale)
	}

	var overlay *vision.Image
	if cfg.Superpose != "" {
		raw, err := vision.LoadImage(cfg.Superpose, cfg.Grayscale)
		if err != nil {
			return err
		}
		overlay = vision.ResizeTo(raw, ref.Width(), ref.Height())
		raw.Close()
	}

	renderer := vision.NewWindowRenderer(ref, refSet, overlay, source.Streaming())
	defer renderer.Close()

	reporters := []pipeline.Reporter{emitter.NewConsoleReporter(nil)}
	if cfg.MQTT.Broker != "" {
		mq, err := emitter.NewMQTTEmitter(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		if err := mq.Connect(); err != nil {
			return err
		}
		defer mq.Close()
		reporters = append(reporters, mq)
	}

	sched := pipeline.NewScheduler(
		source,
		resizer,
		algo.Extractor,
		algo.Matcher,
		feature.NewRatioFilter(cfg.Ratio),
		geometry.NewLocalizer(vision.NewHomographySolver(), cfg.MinMatches),
		renderer,
		refSet,
		pipeline.SchedulerConfig{
			EveryN:         cfg.Every,
			ReportInterval: cfg.ReportInterval(),
		},
		logger,
		reporters...,
	)
	return sched.Run(ctx)
}

// openSource builds the frame source named by the configuration. The RTSP
// source starts its capture goroutine here; the others read synchronously.
func openSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (pipeline.FrameSource, error) {
	switch cfg.SourceKind() {
	case config.SourceWebcam:
		return vision.OpenCaptureSource(0, cfg.Grayscale)
	case config.SourceRTSP:
		src, err := stream.NewRTSPSource(stream.Config{
			URL:       cfg.In,
			Width:     cfg.Stream.Width,
			Height:    cfg.Stream.Height,
			FPS:       cfg.Stream.FPS,
			Grayscale: cfg.Grayscale,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := src.Start(ctx); err != nil {
			return nil, err
		}
		return src, nil
	default:
		return vision.NewFileSource(cfg.In, cfg.Grayscale), nil
	}
}
