package pipeline

import (
	"sync"

	"github.com/credlens/credcheck/internal/model"
)

// EventType discriminates progress events on a stream.
type EventType string

const (
	EventStatus   EventType = "status"
	EventPartial  EventType = "partial"
	EventSnippet  EventType = "snippet"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one frame of a progressive analysis. Progress never decreases
// across a stream; the complete event always carries 100.
type Event struct {
	Type       EventType             `json:"type"`
	Message    string                `json:"message,omitempty"`
	Progress   int                   `json:"progress"`
	TrustScore int                   `json:"trust_score,omitempty"`
	Label      model.Label           `json:"label,omitempty"`
	Bias       model.Bias            `json:"bias,omitempty"`
	Snippet    *model.FlaggedSnippet `json:"snippet,omitempty"`
	Result     *model.AnalysisResult `json:"result,omitempty"`
	Kind       string                `json:"kind,omitempty"`
}

// Emitter pushes events from one pipeline run to one consumer. A nil
// Emitter is valid and drops everything, so non-streaming runs share the
// same pipeline code.
//
// The event channel is closed by the producing side, on Complete or
// Error. Stop detaches the consumer: later sends are discarded instead of
// blocking, so a disconnected client never stalls a computation that a
// concurrent request is still attached to.
type Emitter struct {
	ch   chan Event
	done chan struct{}

	mu       sync.Mutex
	progress int
	stopped  bool
	finished bool
}

// NewEmitter creates an Emitter with a buffered channel.
func NewEmitter() *Emitter {
	return &Emitter{
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events is the consumer's side of the stream. Closed after the complete
// or error event.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Stop detaches the consumer. Events sent after Stop are dropped.
// Idempotent.
func (e *Emitter) Stop() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	close(e.done)
}

func (e *Emitter) send(ev Event) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.stopped || e.finished {
		e.mu.Unlock()
		return
	}
	// Progress stays monotonic even when a cached replay overlaps live
	// stage events.
	if ev.Progress < e.progress {
		ev.Progress = e.progress
	}
	e.progress = ev.Progress
	e.mu.Unlock()

	select {
	case e.ch <- ev:
	case <-e.done:
	}
}

// finish closes the event channel. Producer side only, exactly once.
func (e *Emitter) finish() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	e.finished = true
	close(e.ch)
}

// Status reports stage entry.
func (e *Emitter) Status(message string, progress int) {
	e.send(Event{Type: EventStatus, Message: message, Progress: progress})
}

// Partial reports the pre-verification estimate.
func (e *Emitter) Partial(score int, label model.Label, bias model.Bias, progress int) {
	e.send(Event{Type: EventPartial, TrustScore: score, Label: label, Bias: bias, Progress: progress})
}

// Snippet reports one validated snippet, in final sorted order.
func (e *Emitter) Snippet(s model.FlaggedSnippet, progress int) {
	e.send(Event{Type: EventSnippet, Snippet: &s, Progress: progress})
}

// Complete reports the final result and terminates the stream.
func (e *Emitter) Complete(result *model.AnalysisResult) {
	e.send(Event{Type: EventComplete, Result: result, Progress: 100})
	e.finish()
}

// Error reports a fatal fault and terminates the stream.
func (e *Emitter) Error(kind, message string) {
	e.send(Event{Type: EventError, Kind: kind, Message: message})
	e.finish()
}
