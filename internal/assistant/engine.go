package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/domain/srs"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/phrazzld/scry-assistant/internal/search"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Dependencies are the collaborators of an Engine.
type Dependencies struct {
	// Model answers every prompt. Required.
	Model llm.Model
	// Repository holds the decks and cards. Required.
	Repository store.Repository
	// Index ranks cards for content searches and content questions. Required.
	Index search.Index
	// Scheduler grades study reviews. Defaults to srs.NewDefaultScheduler.
	Scheduler srs.Scheduler
	// Emitter receives progress events. Defaults to events.NoopEmitter.
	Emitter events.EventEmitter
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// GenerateOptions are passed on every model call.
	GenerateOptions []llm.Option
}

// ExecutionResult is the outcome of one run.
type ExecutionResult struct {
	Kind    history.Result `json:"kind"`
	Message string         `json:"message"`
	// StateHistory lists every state the run entered, in order.
	StateHistory []StateID `json:"state_history"`
	// Transcript holds every model exchange of the run.
	Transcript [][]llm.Message `json:"transcript,omitempty"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSessionID sets the session the engine's progress events belong to.
func WithSessionID(id uuid.UUID) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// WithHistory makes the engine record into and read from log.
func WithHistory(log *history.Log) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine runs user utterances through the conversation graph. It belongs to
// one session: runs are serialized, and the engine keeps the session's
// history and study progress between runs.
type Engine struct {
	model     llm.Model
	repo      store.Repository
	index     search.Index
	scheduler srs.Scheduler
	emitter   events.EventEmitter
	logger    *slog.Logger
	now       func() time.Time
	genOpts   []llm.Option
	cfg       config.EngineConfig

	sessionID    uuid.UUID
	log          *history.Log
	sink         command.ActionSink
	tasks        *command.Registry
	stream       *command.Registry
	states       transitions
	systemPrompt string

	mu    sync.Mutex
	study *studySession
}

// NewEngine validates deps and cfg and builds the command registry and the state
// graph.
func NewEngine(deps Dependencies, cfg config.EngineConfig, opts ...Option) (*Engine, error) {
	switch {
	case deps.Model == nil:
		return nil, fmt.Errorf("%w: model", ErrMissingDependency)
	case deps.Repository == nil:
		return nil, fmt.Errorf("%w: repository", ErrMissingDependency)
	case deps.Index == nil:
		return nil, fmt.Errorf("%w: search index", ErrMissingDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Scheduler == nil {
		deps.Scheduler = srs.NewDefaultScheduler()
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NoopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	systemPrompt, err := renderPrompt(promptSystem, promptData{})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		model:        deps.Model,
		repo:         deps.Repository,
		index:        deps.Index,
		scheduler:    deps.Scheduler,
		emitter:      deps.Emitter,
		now:          deps.Now,
		genOpts:      deps.GenerateOptions,
		cfg:          cfg,
		sessionID:    uuid.New(),
		systemPrompt: systemPrompt,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = history.NewLog()
	}
	e.logger = deps.Logger.With(
		slog.String("component", "assistant_engine"),
		slog.String("session_id", e.sessionID.String()))

	e.sink = command.SinkFunc(e.commitAction)
	registry := command.NewRegistry(e.sink, e.logger)
	command.RegisterBuiltins(registry, e.repo)
	e.tasks = registry.Only(command.TaskCommands...)
	e.stream = registry.Only(command.StreamCommands...)

	e.states = e.buildStates()
	if err := e.states.validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// SessionID returns the session the engine belongs to.
func (e *Engine) SessionID() uuid.UUID {
	return e.sessionID
}

// History returns the session log.
func (e *Engine) History() *history.Log {
	return e.log
}

// Studying reports whether a study session is in progress.
func (e *Engine) Studying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.study != nil
}

// Run processes one utterance. The result is never nil: when err is
// non-nil, the result has kind history.ResultFailed and describes how far
// the run got.
func (e *Engine) Run(ctx context.Context, utterance string) (*ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("run_id", uuid.NewString()))
	ctx = logger.WithContext(ctx, log)

	r := &Run{
		engine:   e,
		recorder: llm.NewRecorder(e.model),
		logger:   log,
		prompt:   utterance,
	}

	log.InfoContext(ctx, "run started", slog.Int("utterance_length", len(utterance)))
	final, err := e.drive(ctx, r)

	result := &ExecutionResult{
		StateHistory: r.visited,
		Transcript:   r.recorder.Transcript(),
	}
	if err != nil {
		result.Kind = history.ResultFailed
		result.Message = failureMessage(err)
		log.ErrorContext(ctx, "run failed",
			slog.String("state", string(r.current)),
			slog.Int("states", len(r.visited)),
			redact.Attr(err))
	} else {
		result.Kind = final.Kind
		result.Message = final.Message
		log.InfoContext(ctx, "run finished",
			slog.String("kind", string(final.Kind)),
			slog.Int("states", len(r.visited)))
	}

	e.emit(ctx, events.KindResult, string(r.current), result.Message)
	return result, err
}

func (e *Engine) drive(ctx context.Context, r *Run) (*Final, error) {
	id := StateClassifyRequest
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit := e.cfg.MaxStates; limit > 0 && len(r.visited) >= limit {
			return &Final{
				Kind:    history.ResultLimitReached,
				Message: fmt.Sprintf("The request could not be completed within %d steps.", limit),
			}, nil
		}

		n, ok := e.states[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownState, id)
		}
		r.current = id
		r.visited = append(r.visited, id)
		e.emit(ctx, events.KindState, string(id), "Entered state "+string(id))

		out, err := n.state.Act(withState(ctx, id), r)
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", id, err)
		}
		if out.Final != nil {
			return out.Final, nil
		}
		if !e.states.allows(id, out.Next) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, id, out.Next)
		}
		id = out.Next
	}
}

// commitAction appends a committed action to the session log and reports it.
func (e *Engine) commitAction(ctx context.Context, action history.Action) {
	e.log.Append(action)
	e.emit(ctx, events.KindAction, string(stateFrom(ctx)), action.Description)
}

func (e *Engine) emit(ctx context.Context, kind events.Kind, state, message string) {
	event := events.NewProgressEvent(e.sessionID, kind, state, message)
	if err := e.emitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, e.logger).WarnContext(ctx, "failed to emit progress event",
			slog.String("kind", string(kind)),
			redact.Attr(err))
	}
}

type stateKey struct{}

func withState(ctx context.Context, id StateID) context.Context {
	return context.WithValue(ctx, stateKey{}, id)
}

func stateFrom(ctx context.Context) StateID {
	id, _ := ctx.Value(stateKey{}).(StateID)
	return id
}
