package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/scry-assistant/internal/redact"
)

// InMemoryEventEmitter fans progress events out to handlers registered in
// process. Handlers run synchronously, in registration order, on the
// goroutine that emits.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []subscriber
	logger   *slog.Logger
}

type subscriber struct {
	id      uint64
	handler EventHandler
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter returns an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler subscribes handler to every subsequent event. Calling the
// returned function removes it; extra calls are no-ops.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) (unregister func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscriber{id: id, handler: handler})
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("registered event handler", "handler_id", id, "handler_count", count)
	return func() { e.remove(id) }
}

func (e *InMemoryEventEmitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.handlers {
		if s.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			e.logger.Debug("removed event handler", "handler_id", id, "handler_count", len(e.handlers))
			return
		}
	}
}

// HandlerCount returns the number of registered handlers.
func (e *InMemoryEventEmitter) HandlerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// EmitEvent delivers event to every handler registered at the time of the
// call. A failing handler does not stop delivery; the first error is
// returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *ProgressEvent) error {
	e.mu.RLock()
	subs := append([]subscriber(nil), e.handlers...)
	e.mu.RUnlock()

	var firstErr error
	for _, s := range subs {
		err := s.handler.HandleEvent(ctx, event)
		if err == nil {
			continue
		}
		e.logger.Error("handler failed to process event",
			redact.Attr(err),
			"handler_id", s.id,
			"event_id", event.ID,
			"event_kind", event.Kind)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
