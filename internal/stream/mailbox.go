package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/visiona/spotter/internal/pipeline"
)

// Mailbox is a single-slot hand-off between the capture callback and the
// synchronous pipeline loop. A new frame overwrites an unconsumed one, so
// the consumer always sees the latest frame and never a backlog.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *pipeline.Frame
	closed bool
	drops  uint64
}

func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put deposits a frame, releasing any unconsumed predecessor. Non-blocking.
// After Close it releases the frame and returns.
func (m *Mailbox) Put(frame pipeline.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		closeImage(&frame)
		return
	}
	if m.frame != nil {
		closeImage(m.frame)
		atomic.AddUint64(&m.drops, 1)
	}
	m.frame = &frame
	m.cond.Signal()
}

// Take blocks until a frame is available, the mailbox is closed, or ctx is
// cancelled. A closed mailbox yields pipeline.ErrEndOfStream.
func (m *Mailbox) Take(ctx context.Context) (pipeline.Frame, error) {
	stop := context.AfterFunc(ctx, func() { m.cond.Broadcast() })
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	if m.frame == nil {
		return pipeline.Frame{}, pipeline.ErrEndOfStream
	}
	frame := *m.frame
	m.frame = nil
	return frame, nil
}

// Close wakes any blocked Take and releases an undelivered frame.
// Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	if m.frame != nil {
		closeImage(m.frame)
		m.frame = nil
	}
	m.cond.Broadcast()
}

// Drops reports how many frames were overwritten before consumption.
func (m *Mailbox) Drops() uint64 {
	return atomic.LoadUint64(&m.drops)
}

func closeImage(f *pipeline.Frame) {
	if f.Image != nil {
		f.Image.Close()
	}
}
