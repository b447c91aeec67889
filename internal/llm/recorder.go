package llm

import (
	"context"
	"slices"
	"sync"
)

// Recorder wraps a Model and keeps every request/reply pair it sees.
//
// Calls are grouped into exchanges: a call whose request is an extension of
// the previous call's request plus reply is folded into the same exchange, so
// a multi-turn state shows up as one transcript rather than one per call.
type Recorder struct {
	model Model

	mu        sync.Mutex
	exchanges [][]Message
}

var _ Model = (*Recorder)(nil)

// NewRecorder wraps model.
func NewRecorder(model Model) *Recorder {
	return &Recorder{model: model}
}

// Generate forwards to the wrapped model and records the exchange on success.
func (r *Recorder) Generate(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	reply, err := r.model.Generate(ctx, messages, opts...)
	if err != nil {
		return "", err
	}

	full := make([]Message, 0, len(messages)+1)
	full = append(full, messages...)
	full = append(full, Message{Role: RoleAssistant, Content: reply})

	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.exchanges); n > 0 && extends(messages, r.exchanges[n-1]) {
		r.exchanges[n-1] = full
	} else {
		r.exchanges = append(r.exchanges, full)
	}
	return reply, nil
}

// Transcript returns a copy of the recorded exchanges in call order.
func (r *Recorder) Transcript() [][]Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]Message, len(r.exchanges))
	for i, ex := range r.exchanges {
		out[i] = slices.Clone(ex)
	}
	return out
}

// extends reports whether request starts with every message of prev.
func extends(request, prev []Message) bool {
	if len(request) <= len(prev) {
		return false
	}
	return slices.Equal(request[:len(prev)], prev)
}
