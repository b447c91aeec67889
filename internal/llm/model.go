package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a message in a transcript.
type Role string

// Message roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrEmptyResponse is returned by models that produced no text.
var ErrEmptyResponse = errors.New("language model returned an empty response")

// Model is a text generator that continues a conversation.
//
// Implementations receive the complete transcript on every call and return
// the text of the next assistant message. Any error is treated by callers as
// a transport or resource failure; a well-formed but useless reply is not an
// error.
type Model interface {
	Generate(ctx context.Context, messages []Message, opts ...Option) (string, error)
}

// Options are per-call generation settings. Zero values mean "provider default".
type Options struct {
	Temperature *float32
	MaxTokens   int32
}

// Option customizes a single Generate call.
type Option func(*Options)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the length of the reply.
func WithMaxTokens(n int32) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts into an Options value.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ModelFunc adapts an ordinary function to the Model interface.
type ModelFunc func(ctx context.Context, messages []Message, opts ...Option) (string, error)

// Generate implements Model.
func (f ModelFunc) Generate(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	return f(ctx, messages, opts...)
}
