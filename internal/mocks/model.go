package mocks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/phrazzld/scry-assistant/internal/llm"
)

// ErrScriptExhausted is returned by ScriptedModel when it is asked for more
// replies than it was given.
var ErrScriptExhausted = errors.New("scripted model has no replies left")

// Step is one scripted model response: either a reply or an error.
type Step struct {
	Reply string
	Err   error
}

// ScriptedModel implements llm.Model by replaying a fixed script.
type ScriptedModel struct {
	// GenerateFn, when set, replaces the script entirely.
	GenerateFn func(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error)

	mu       sync.Mutex
	steps    []Step
	next     int
	requests [][]llm.Message
}

var _ llm.Model = (*ScriptedModel)(nil)

// NewScriptedModel creates a model that answers with replies in order.
func NewScriptedModel(replies ...string) *ScriptedModel {
	m := &ScriptedModel{}
	for _, r := range replies {
		m.steps = append(m.steps, Step{Reply: r})
	}
	return m
}

// Then appends replies to the script.
func (m *ScriptedModel) Then(replies ...string) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range replies {
		m.steps = append(m.steps, Step{Reply: r})
	}
	return m
}

// ThenError appends a failing call to the script.
func (m *ScriptedModel) ThenError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, Step{Err: err})
	return m
}

// Generate implements llm.Model.
func (m *ScriptedModel) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, slices.Clone(messages))
	if m.GenerateFn != nil {
		fn := m.GenerateFn
		m.mu.Unlock()
		return fn(ctx, messages, opts...)
	}
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.next >= len(m.steps) {
		return "", fmt.Errorf("%w: call %d", ErrScriptExhausted, len(m.requests))
	}
	step := m.steps[m.next]
	m.next++
	return step.Reply, step.Err
}

// Requests returns a copy of every transcript the model was called with.
func (m *ScriptedModel) Requests() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]llm.Message, len(m.requests))
	for i, r := range m.requests {
		out[i] = slices.Clone(r)
	}
	return out
}

// CallCount returns the number of Generate calls.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastPrompt returns the final message of the most recent request.
func (m *ScriptedModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	last := m.requests[len(m.requests)-1]
	if len(last) == 0 {
		return ""
	}
	return last[len(last)-1].Content
}

// Remaining returns the number of unused script steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps) - m.next
}
