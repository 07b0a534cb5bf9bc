package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/visiona/spotter/internal/pipeline"
)

type countingImage struct {
	closed bool
}

func (c *countingImage) Width() int   { return 4 }
func (c *countingImage) Height() int  { return 4 }
func (c *countingImage) Close() error { c.closed = true; return nil }

func frameWith(img *countingImage, seq uint64) pipeline.Frame {
	return pipeline.Frame{Seq: seq, Image: img}
}

// TestMailboxLatestWins verifies that an unconsumed frame is replaced and
// released when a newer one arrives.
func TestMailboxLatestWins(t *testing.T) {
	m := NewMailbox()
	old := &countingImage{}
	m.Put(frameWith(old, 1))
	m.Put(frameWith(&countingImage{}, 2))

	if !old.closed {
		t.Error("overwritten frame image not released")
	}
	if m.Drops() != 1 {
		t.Errorf("drops = %d, want 1", m.Drops())
	}

	got, err := m.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if got.Seq != 2 {
		t.Errorf("took seq %d, want 2", got.Seq)
	}
}

// TestMailboxTakeBlocks verifies Take waits for a deposit.
func TestMailboxTakeBlocks(t *testing.T) {
	m := NewMailbox()
	done := make(chan pipeline.Frame, 1)
	go func() {
		f, err := m.Take(context.Background())
		if err != nil {
			t.Errorf("Take: %v", err)
		}
		done <- f
	}()

	select {
	case <-done:
		t.Fatal("Take returned before any frame was deposited")
	case <-time.After(20 * time.Millisecond):
	}

	m.Put(frameWith(&countingImage{}, 7))
	select {
	case f := <-done:
		if f.Seq != 7 {
			t.Errorf("took seq %d, want 7", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not wake after Put")
	}
}

// TestMailboxClose verifies closed semantics on both sides.
func TestMailboxClose(t *testing.T) {
	m := NewMailbox()
	pending := &countingImage{}
	m.Put(frameWith(pending, 1))
	m.Close()

	if !pending.closed {
		t.Error("undelivered frame not released on close")
	}
	if _, err := m.Take(context.Background()); !errors.Is(err, pipeline.ErrEndOfStream) {
		t.Errorf("Take after close = %v, want ErrEndOfStream", err)
	}

	late := &countingImage{}
	m.Put(frameWith(late, 2))
	if !late.closed {
		t.Error("frame deposited after close not released")
	}

	m.Close()
}

// TestMailboxTakeHonorsContext verifies a blocked Take unblocks on
// cancellation.
func TestMailboxTakeHonorsContext(t *testing.T) {
	m := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := m.Take(ctx)
		errs <- err
	}()

	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Take = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock on cancellation")
	}
}
