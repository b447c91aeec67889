package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-assistant/internal/events"
)

// EventRecorder implements events.EventHandler and events.EventEmitter by
// keeping every event it receives.
type EventRecorder struct {
	// Err is returned from every call after the event was recorded.
	Err error

	mu     sync.Mutex
	events []*events.ProgressEvent
}

var (
	_ events.EventHandler = (*EventRecorder)(nil)
	_ events.EventEmitter = (*EventRecorder)(nil)
)

// HandleEvent implements events.EventHandler.
func (r *EventRecorder) HandleEvent(_ context.Context, event *events.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// EmitEvent implements events.EventEmitter.
func (r *EventRecorder) EmitEvent(ctx context.Context, event *events.ProgressEvent) error {
	return r.HandleEvent(ctx, event)
}

// Events returns the recorded events in order.
func (r *EventRecorder) Events() []*events.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*events.ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind returns the messages of the recorded events of one kind.
func (r *EventRecorder) OfKind(kind events.Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e.Message)
		}
	}
	return out
}
