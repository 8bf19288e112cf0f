// Package tone signals audible events such as a detected wall edge.
package tone

import (
	"io"
	"sync"
	"sync/atomic"

	"go.viam.com/localizer/logging"
)

// An Emitter plays a short tone. Emit never blocks on the sound finishing and never fails.
type Emitter interface {
	Emit()
}

// Logged emits a tone by writing a log line.
type Logged struct {
	Logger logging.Logger
}

// Emit logs the tone.
func (l Logged) Emit() {
	l.Logger.Info("beep")
}

// Bell emits a tone by writing the terminal bell character.
type Bell struct {
	mu     sync.Mutex
	w      io.Writer
	logger logging.Logger
}

// NewBell returns a Bell ringing on w. Write errors are logged and otherwise ignored.
func NewBell(w io.Writer, logger logging.Logger) *Bell {
	return &Bell{w: w, logger: logger}
}

// Emit rings the bell.
func (b *Bell) Emit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.w.Write([]byte{'\a'}); err != nil {
		b.logger.Debugw("ringing bell failed", "error", err)
	}
}

// Counter counts emitted tones.
type Counter struct {
	n atomic.Int64
}

// Emit counts one tone.
func (c *Counter) Emit() {
	c.n.Add(1)
}

// Count returns the number of tones emitted so far.
func (c *Counter) Count() int {
	return int(c.n.Load())
}

// Multi plays on every emitter.
type Multi []Emitter

// Emit plays on every emitter in order.
func (m Multi) Emit() {
	for _, e := range m {
		e.Emit()
	}
}
