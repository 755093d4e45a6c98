// Package output provides the capture scope that unit loads write their
// side-effect output into.
package output

import (
	"io"
	"sync"
)

// Checkpoint is the observable state of a Capture at one instant.
type Checkpoint struct {
	Bytes int64 // total bytes ever written
	Depth int   // open Begin scopes
}

// Capture is an io.Writer that counts everything written to it and tracks a
// nesting depth. Two checkpoints differ iff something was written or a scope
// was opened or closed in between.
type Capture struct {
	mu    sync.Mutex
	bytes int64
	depth int
	sink  io.Writer
}

// New returns a Capture that forwards written bytes to sink. A nil sink
// discards them.
func New(sink io.Writer) *Capture {
	return &Capture{sink: sink}
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytes += int64(len(p))
	if c.sink == nil {
		return len(p), nil
	}
	return c.sink.Write(p)
}

// Begin opens a nested capture scope.
func (c *Capture) Begin() {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()
}

// End closes the innermost scope. It reports false when no scope is open.
func (c *Capture) End() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.depth == 0 {
		return false
	}
	c.depth--
	return true
}

func (c *Capture) Checkpoint() Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Checkpoint{Bytes: c.bytes, Depth: c.depth}
}
