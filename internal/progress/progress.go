// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress draws a one-line upload status while a run is in flight.
package progress

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/pdiddy/gemini-file-search-tool/internal/upload"
)

// Counters tallies outcomes by kind. Failed includes errors.
type Counters struct {
	New     int
	Updated int
	Pending int
	Failed  int
	Skipped int
}

// Done is the number of outcomes seen.
func (c Counters) Done() int {
	return c.New + c.Updated + c.Pending + c.Failed + c.Skipped
}

func (c *Counters) add(o upload.Outcome) {
	switch o.Status {
	case upload.StatusCompleted:
		c.New++
	case upload.StatusUpdated:
		c.Updated++
	case upload.StatusPending:
		c.Pending++
	case upload.StatusSkipped:
		c.Skipped++
	default:
		c.Failed++
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Renderer consumes outcomes on its own goroutine and owns the counters.
// On a terminal it redraws a status line after every outcome; otherwise it
// writes nothing.
type Renderer struct {
	out    io.Writer
	tty    bool
	total  int
	events chan upload.Outcome
	done   chan struct{}
	counts Counters
}

// New creates a Renderer for a run of total files and starts its goroutine.
func New(out io.Writer, total int, tty bool) *Renderer {
	r := &Renderer{
		out:    out,
		tty:    tty,
		total:  total,
		events: make(chan upload.Outcome, 16),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r
}

// Send queues one outcome. It must not be called after Close.
func (r *Renderer) Send(o upload.Outcome) {
	r.events <- o
}

// Close drains the queue, clears the status line and returns the final
// counters.
func (r *Renderer) Close() Counters {
	close(r.events)
	<-r.done
	return r.counts
}

func (r *Renderer) loop() {
	defer close(r.done)
	for o := range r.events {
		r.counts.add(o)
		if r.tty {
			fmt.Fprintf(r.out, "\r\033[K%s", r.line())
		}
	}
	if r.tty && r.counts.Done() > 0 {
		fmt.Fprint(r.out, "\r\033[K")
	}
}

func (r *Renderer) line() string {
	c := r.counts
	return fmt.Sprintf("[%d/%d] new: %d, updated: %d, pending: %d, failed: %d, skipped: %d",
		c.Done(), r.total, c.New, c.Updated, c.Pending, c.Failed, c.Skipped)
}
