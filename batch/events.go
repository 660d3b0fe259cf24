package batch

import (
	"sync"
	"time"
)

// EventType classifies messages emitted during a run.
type EventType string

const (
	EventRunStarted  EventType = "run_started"
	EventRunFinished EventType = "run_finished"
	EventItemStatus  EventType = "item_status"
	EventChunk       EventType = "chunk"
	EventRetry       EventType = "retry"
	EventPaused      EventType = "paused"
	EventLog         EventType = "log"
)

// Level is the severity of an event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one progress or log record of a run.
type Event struct {
	Seq     int64     `json:"seq"`
	Time    time.Time `json:"time"`
	RunID   string    `json:"runId"`
	Type    EventType `json:"type"`
	Level   Level     `json:"level"`
	Item    string    `json:"item,omitempty"`
	Index   int       `json:"index"`
	Status  Status    `json:"status,omitempty"`
	Chunk   int       `json:"chunk,omitempty"`
	Chunks  int       `json:"chunks,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Sink receives events. Emit is called synchronously from the run
// goroutine, in order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Bus stores recent events and provides incremental reads. It can be used
// as a Sink on its own or fan out to another one.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	next      Sink
}

// NewBus creates a bounded in-memory event buffer that forwards every event
// to next, when not nil.
func NewBus(maxEvents int, next Sink) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		next:      next,
	}
}

// Emit implements Sink.
func (b *Bus) Emit(e Event) {
	e = b.Publish(e)
	if b.next != nil {
		b.next.Emit(e)
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *Bus) Publish(e Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	e.Seq = b.nextSeq
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.events = append(b.events, e)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return e
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}
	out := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}
