package batch

import (
	"errors"
	"sync"
)

// State is the run-level state shared by every item of a run.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

var (
	// ErrStopped is returned when a run ends because the user stopped it.
	ErrStopped = errors.New("translation stopped by user")
	// ErrAlreadyRunning is returned when starting a second concurrent run.
	ErrAlreadyRunning = errors.New("a translation run is already in progress")
)

// Control is the thread-safe run-state and model cell. The orchestrator
// reads it at every suspension point, so Pause, Resume, Stop and SetModel
// may be called from any goroutine while a run is in progress.
type Control struct {
	mu     sync.RWMutex
	state  State
	model  string
	active bool
}

// NewControl returns an idle control.
func NewControl() *Control {
	return &Control{state: StateIdle}
}

// State returns the current run-state.
func (c *Control) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Active reports whether a run is in progress (running or suspended).
func (c *Control) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Pause suspends a running run at its next chunk or item boundary.
func (c *Control) Pause() bool {
	return c.transition(StateRunning, StatePaused)
}

// Resume continues a paused run.
func (c *Control) Resume() bool {
	return c.transition(StatePaused, StateRunning)
}

// Stop ends a running or paused run at its next boundary. Work already
// finished is kept.
func (c *Control) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning && c.state != StatePaused {
		return false
	}
	c.state = StateStopped
	return true
}

// SetModel changes the model used for the next provider call.
func (c *Control) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Model returns the model set with SetModel.
func (c *Control) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *Control) transition(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

// begin marks a run as started. A run left paused by a previous call may
// be restarted.
func (c *Control) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrAlreadyRunning
	}
	c.active = true
	c.state = StateRunning
	return nil
}

// end marks the run finished. A paused state is kept so the caller can
// inspect it and resume with a new run; anything else returns to idle.
func (c *Control) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	if c.state != StatePaused {
		c.state = StateIdle
	}
}
