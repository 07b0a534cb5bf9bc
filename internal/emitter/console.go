package emitter

import (
	"fmt"
	"io"
	"os"

	"github.com/visiona/spotter/internal/pipeline"
)

// ConsoleReporter prints each interval report in its one-block text form.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter writes to stdout when w is nil.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{w: w}
}

// Emit implements pipeline.Reporter.
func (c *ConsoleReporter) Emit(r pipeline.Report) {
	fmt.Fprintln(c.w, r.Format())
}
