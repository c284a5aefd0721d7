// Package spinner renders a single-line progress spinner for long-running
// terminal operations.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const interval = 80 * time.Millisecond

var frames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a braille spinner next to a message on one terminal
// line. Methods are safe for concurrent use; all rendering happens on a
// single background goroutine between Start and Stop.
type Spinner struct {
	w io.Writer

	mu       sync.Mutex
	message  string
	maxWidth int
	done     chan struct{}
	stopped  chan struct{}
}

// New returns a stopped spinner that renders to w.
func New(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start begins animating with the given message. Starting a spinner that
// is already running only swaps the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.done, s.stopped)
}

// Update swaps the message without restarting the animation.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line so the caller can print a
// final status in its place. Stopping a stopped spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

func (s *Spinner) run(done <-chan struct{}, stopped chan<- struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0
	s.render(frame)
	for {
		select {
		case <-done:
			s.clear()
			close(stopped)
			return
		case <-ticker.C:
			frame++
			s.render(frame)
		}
	}
}

// render draws the current frame, padded out to the widest line drawn so
// far so that a message shrinking mid-run leaves no stale characters.
func (s *Spinner) render(frame int) {
	s.mu.Lock()
	line := frames[frame%len(frames)] + " " + s.message
	width := runewidth.StringWidth(line)
	if width > s.maxWidth {
		s.maxWidth = width
	}
	pad := s.maxWidth - width
	s.mu.Unlock()

	fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", pad)) //nolint:errcheck
}

func (s *Spinner) clear() {
	s.mu.Lock()
	width := s.maxWidth
	s.maxWidth = 0
	s.mu.Unlock()

	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
}
