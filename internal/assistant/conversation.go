package assistant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
)

// Conversation feeds user queries to an Engine and keeps the session
// history. Queries that ended asking for more information are prefixed to
// the next query. Concurrent calls to Process run one at a time, in the
// order they acquire the conversation.
type Conversation struct {
	mu     sync.Mutex
	engine *Engine
}

// NewConversation creates a conversation over a fresh engine.
func NewConversation(deps Dependencies, cfg config.EngineConfig, opts ...Option) (*Conversation, error) {
	engine, err := NewEngine(deps, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Conversation{engine: engine}, nil
}

// ID returns the session id of the conversation.
func (c *Conversation) ID() uuid.UUID {
	return c.engine.SessionID()
}

// Engine returns the engine the conversation drives.
func (c *Conversation) Engine() *Engine {
	return c.engine
}

// Process runs query, joined with any queries still waiting for
// information, and records the turn. The result is never nil.
func (c *Conversation) Process(ctx context.Context, query string) (*ExecutionResult, error) {
	// A pending query is folded into exactly one run.
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.engine.History()
	prompt := log.PendingQuery(query)
	if prompt != query {
		logger.FromContextOrDefault(ctx, c.engine.logger).DebugContext(ctx, "joined pending queries",
			slog.Int("prompt_length", len(prompt)))
	}

	result, err := c.engine.Run(ctx, prompt)
	log.RecordTurn(history.Turn{
		Query:   query,
		Result:  result.Kind,
		Message: result.Message,
	})
	return result, err
}
