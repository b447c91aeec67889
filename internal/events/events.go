package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a progress event.
type Kind string

// Event kinds
const (
	// KindState is emitted when the engine enters a new state.
	KindState Kind = "state"
	// KindAction is emitted after a repository change was committed.
	KindAction Kind = "action"
	// KindResult is emitted once when a run ends.
	KindResult Kind = "result"
)

// ProgressEvent is a single progress notification from a run.
type ProgressEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// SessionID identifies the conversation the run belongs to
	SessionID uuid.UUID `json:"session_id"`

	// Kind tells consumers how to interpret Message
	Kind Kind `json:"kind"`

	// State is the name of the state that was active when the event was emitted
	State string `json:"state,omitempty"`

	// Message is a human-readable description
	Message string `json:"message"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewProgressEvent creates a ProgressEvent with a fresh ID and timestamp.
func NewProgressEvent(sessionID uuid.UUID, kind Kind, state, message string) *ProgressEvent {
	return &ProgressEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		Kind:      kind,
		State:     state,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ProgressEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *ProgressEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ProgressEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the engine to publish progress without knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ProgressEvent) error
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NoopEmitter) EmitEvent(context.Context, *ProgressEvent) error {
	return nil
}
