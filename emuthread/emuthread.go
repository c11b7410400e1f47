// Package emuthread coordinates the emulation goroutine with callers that
// need the machine quiescent, such as save state reads and writes.
package emuthread

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Control manages pause/resume/stop coordination between callers and the
// emulation goroutine. Pauses nest: the machine runs again only once
// every Pause has been matched by a Resume.
type Control struct {
	mu      sync.Mutex
	cond    *sync.Cond
	depth   int  // outstanding Pause calls
	paused  bool // emulation goroutine is parked
	active  bool // emulation goroutine is inside Run
	stopped bool
	logger  hclog.Logger
}

// NewControl creates a new emulation control.
func NewControl(logger hclog.Logger) *Control {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	c := &Control{logger: logger.Named("emuthread")}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Pause blocks until the emulation goroutine has parked between frames.
// It returns immediately when no goroutine is running or the session has
// been stopped.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.depth++
	for c.active && !c.paused && !c.stopped {
		c.cond.Wait()
	}
}

// Resume releases one Pause.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.depth == 0 {
		c.logger.Warn("resume without matching pause")
		return
	}
	c.depth--
	if c.depth == 0 {
		c.cond.Broadcast()
	}
}

// Stop signals the emulation goroutine to exit. A parked goroutine is
// released.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		c.logger.Debug("stop requested")
	}
	c.stopped = true
	c.cond.Broadcast()
}

// Run calls step once per frame on the calling goroutine until Stop is
// called or step fails. Between frames it parks while any Pause is
// outstanding.
func (c *Control) Run(step func() error) error {
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active = false
		c.paused = false
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	for c.checkPause() {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// checkPause is called by the emulation goroutine between frames. It
// parks while a pause is requested and returns false once the goroutine
// should exit.
func (c *Control) checkPause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}
	if c.depth == 0 {
		return true
	}

	c.paused = true
	c.cond.Broadcast()
	for c.depth > 0 && !c.stopped {
		c.cond.Wait()
	}
	c.paused = false
	return !c.stopped
}

// ShouldRun returns true if the session has not been stopped.
func (c *Control) ShouldRun() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped
}

// IsPaused returns true if the emulation goroutine is currently parked.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
