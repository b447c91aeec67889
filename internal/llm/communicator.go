package llm

import (
	"context"
	"errors"
	"slices"
)

// Communicator errors
var (
	// ErrSystemPromptNotFirst is returned when a system prompt is set on a
	// transcript that already contains messages.
	ErrSystemPromptNotFirst = errors.New("system prompt must be the first message")

	// ErrNoVisibilityBlock is returned when a visibility block is closed
	// without a matching start.
	ErrNoVisibilityBlock = errors.New("no visibility block is open")
)

// Communicator holds one ordered conversation with a Model.
//
// Messages are only ever appended, except when a visibility block is closed:
// EndVisibilityBlock truncates the transcript back to the length it had when
// the matching StartVisibilityBlock was called. Blocks nest.
type Communicator struct {
	model    Model
	opts     []Option
	messages []Message
	blocks   []int
}

// NewCommunicator creates an empty conversation with model. The options are
// passed on every Generate call.
func NewCommunicator(model Model, opts ...Option) *Communicator {
	return &Communicator{
		model: model,
		opts:  opts,
	}
}

// SetSystemPrompt sets the system prompt. It is only allowed on an empty transcript.
func (c *Communicator) SetSystemPrompt(prompt string) error {
	if len(c.messages) > 0 {
		return ErrSystemPromptNotFirst
	}
	c.messages = append(c.messages, Message{Role: RoleSystem, Content: prompt})
	return nil
}

// AddMessage appends a user message without asking the model for a reply.
// It is sent to the model together with the next Send.
func (c *Communicator) AddMessage(text string) {
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})
}

// Send appends text as a user message, asks the model for a reply, appends
// the reply and returns it. If the model fails, the user message is removed
// again so the transcript is unchanged.
func (c *Communicator) Send(ctx context.Context, text string) (string, error) {
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})

	reply, err := c.model.Generate(ctx, c.Messages(), c.opts...)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return "", err
	}

	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: reply})
	return reply, nil
}

// StartVisibilityBlock marks the current end of the transcript.
func (c *Communicator) StartVisibilityBlock() {
	c.blocks = append(c.blocks, len(c.messages))
}

// EndVisibilityBlock discards every message added since the matching
// StartVisibilityBlock.
func (c *Communicator) EndVisibilityBlock() error {
	if len(c.blocks) == 0 {
		return ErrNoVisibilityBlock
	}
	mark := c.blocks[len(c.blocks)-1]
	c.blocks = c.blocks[:len(c.blocks)-1]
	c.messages = c.messages[:mark]
	return nil
}

// InVisibilityBlock reports whether a visibility block is open.
func (c *Communicator) InVisibilityBlock() bool {
	return len(c.blocks) > 0
}

// Messages returns a copy of the transcript.
func (c *Communicator) Messages() []Message {
	return slices.Clone(c.messages)
}
