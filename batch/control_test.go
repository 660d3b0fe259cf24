package batch

import (
	"errors"
	"testing"
	"time"
)

func TestControl_Transitions(t *testing.T) {
	c := NewControl()
	if c.State() != StateIdle || c.Active() {
		t.Fatalf("new control: state=%s active=%v", c.State(), c.Active())
	}
	if c.Pause() || c.Resume() || c.Stop() {
		t.Fatal("idle control accepted a transition")
	}

	if err := c.begin(); err != nil {
		t.Fatalf("begin() error: %v", err)
	}
	if err := c.begin(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second begin() error = %v, want ErrAlreadyRunning", err)
	}
	if !c.Pause() || c.State() != StatePaused {
		t.Fatalf("Pause() from running: state=%s", c.State())
	}
	if c.Pause() {
		t.Fatal("Pause() succeeded twice")
	}
	if !c.Resume() || c.State() != StateRunning {
		t.Fatalf("Resume(): state=%s", c.State())
	}
	if !c.Pause() || !c.Stop() || c.State() != StateStopped {
		t.Fatalf("Stop() from paused: state=%s", c.State())
	}
	if c.Resume() {
		t.Fatal("Resume() left the stopped state")
	}

	c.end()
	if c.State() != StateIdle || c.Active() {
		t.Fatalf("after end: state=%s active=%v", c.State(), c.Active())
	}
}

func TestControl_EndKeepsPause(t *testing.T) {
	c := NewControl()
	_ = c.begin()
	c.Pause()
	c.end()
	if c.State() != StatePaused {
		t.Fatalf("state = %s, want paused", c.State())
	}
	if err := c.begin(); err != nil || c.State() != StateRunning {
		t.Fatalf("begin() after pause: %v, state=%s", err, c.State())
	}
}

func TestControl_ConcurrentModel(t *testing.T) {
	c := NewControl()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			c.SetModel("m")
		}
	}()
	for i := 0; i < 100; i++ {
		_ = c.Model()
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetModel goroutine did not finish")
	}
	if c.Model() != "m" {
		t.Fatalf("Model() = %q, want m", c.Model())
	}
}
