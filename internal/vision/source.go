package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/visiona/spotter/internal/pipeline"
)

// CaptureSource acquires frames from a live capture device. It is a
// streaming source: frame skipping applies and reads block on the device's
// own polling interval.
type CaptureSource struct {
	capture   *gocv.VideoCapture
	grayscale bool
	seq       uint64
}

// OpenCaptureSource opens the capture device. Failure to open is fatal at
// startup; the pipeline never retries device access.
func OpenCaptureSource(deviceID int, grayscale bool) (*CaptureSource, error) {
	capture, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", deviceID, err)
	}
	return &CaptureSource{capture: capture, grayscale: grayscale}, nil
}

// Next reads the next frame from the device. A failed or empty read is
// treated as end-of-stream.
func (s *CaptureSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	m := gocv.NewMat()
	if ok := s.capture.Read(&m); !ok || m.Empty() {
		m.Close()
		return pipeline.Frame{}, pipeline.ErrEndOfStream
	}
	if s.grayscale {
		gray := gocv.NewMat()
		gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
		m.Close()
		m = gray
	}

	s.seq++
	return pipeline.Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		TraceID:   uuid.NewString(),
		Image:     NewImage(m),
	}, nil
}

// Streaming reports true: capture devices deliver a live feed.
func (s *CaptureSource) Streaming() bool { return true }

// Close releases the device.
func (s *CaptureSource) Close() error { return s.capture.Close() }

// FileSource re-loads a fixed image on every call, the static single-shot
// mode: the scheduler always runs the expensive stages and terminates after
// one rendered pass.
type FileSource struct {
	path      string
	grayscale bool
	seq       uint64
}

// NewFileSource returns a source over a static image. The path is
// preflighted by the caller (an unreadable input is fatal at startup).
func NewFileSource(path string, grayscale bool) *FileSource {
	return &FileSource{path: path, grayscale: grayscale}
}

// Next loads the file. Load failure after a successful preflight is
// reported as an error rather than end-of-stream.
func (s *FileSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	img, err := LoadImage(s.path, s.grayscale)
	if err != nil {
		return pipeline.Frame{}, err
	}

	s.seq++
	return pipeline.Frame{
		Seq:       s.seq,
		Timestamp: time.Now(),
		TraceID:   uuid.NewString(),
		Image:     img,
	}, nil
}

// Streaming reports false: the input is a static file.
func (s *FileSource) Streaming() bool { return false }

// Close is a no-op; the source holds no device.
func (s *FileSource) Close() error { return nil }
