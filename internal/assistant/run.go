package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/phrazzld/scry-assistant/internal/search"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Run is the working state of a single Engine.Run call: the user request
// the states work on and the data each state hands to its successors.
type Run struct {
	engine   *Engine
	recorder *llm.Recorder
	logger   *slog.Logger

	prompt   string
	current  StateID
	visited  []StateID
	failures int
	message  string

	// task and search data
	decks         []*domain.Deck
	searchKind    StateID
	strategies    []search.Strategy
	found         []*domain.Card
	searchRetried bool
	effects       []command.Effect

	// study data
	studyAnswer string
	endStudy    bool
}

// Prompt returns the user request the run works on.
func (r *Run) Prompt() string {
	return r.prompt
}

// Current returns the active state.
func (r *Run) Current() StateID {
	return r.current
}

// finish prepares the message of a terminal state and moves to it.
func (r *Run) finish(id StateID, message string) Outcome {
	r.message = message
	return goTo(id)
}

// replyHandler inspects one model reply. An empty feedback accepts the
// reply; a non-empty feedback is sent back to the model as the next message.
// An error ends the conversation.
type replyHandler func(ctx context.Context, reply string) (feedback string, err error)

// communicator starts a fresh conversation carrying the system prompt.
func (r *Run) communicator() *llm.Communicator {
	c := llm.NewCommunicator(r.recorder, r.engine.genOpts...)
	// A fresh communicator is empty, so the system prompt is always first.
	_ = c.SetSystemPrompt(r.engine.systemPrompt)
	return c
}

// converse sends prompt in a fresh conversation and passes every reply to
// handle until it accepts one. After attempts unusable replies it returns
// an *ExhaustedError for the current state.
func (r *Run) converse(ctx context.Context, prompt string, attempts int, handle replyHandler) error {
	comm := r.communicator()
	msg := prompt
	for attempt := 1; attempt <= attempts; attempt++ {
		reply, err := r.send(ctx, comm, msg)
		if err != nil {
			return err
		}

		feedback, err := handle(ctx, reply)
		if err != nil {
			return err
		}
		if feedback == "" {
			return nil
		}

		r.logger.DebugContext(ctx, "reply rejected",
			slog.String("state", string(r.current)),
			slog.Int("attempt", attempt),
			slog.String("feedback", feedback))
		msg = feedback
	}
	return &ExhaustedError{State: r.current, Attempts: attempts, Feedback: msg}
}

// classify asks prompt until the reply contains exactly one of candidates
// as its last signal word.
func (r *Run) classify(ctx context.Context, prompt string, attempts int, retryMsg string, candidates ...string) (string, error) {
	var signal string
	err := r.converse(ctx, prompt, attempts, func(_ context.Context, reply string) (string, error) {
		s, ok := llm.FindLastSignal(reply, candidates...)
		if !ok {
			return retryMsg, nil
		}
		signal = s
		return "", nil
	})
	return signal, err
}

// classifyNumber asks prompt until the reply ends with a number in [lo, hi].
func (r *Run) classifyNumber(ctx context.Context, prompt string, attempts int, retryMsg string, lo, hi int) (int, error) {
	var number int
	err := r.converse(ctx, prompt, attempts, func(_ context.Context, reply string) (string, error) {
		n, ok := llm.LastNumber(reply)
		if !ok || n < lo || n > hi {
			return retryMsg, nil
		}
		number = n
		return "", nil
	})
	return number, err
}

// send delivers msg and returns the reply. Model failures are charged to
// the error budget and the message is sent again.
func (r *Run) send(ctx context.Context, comm *llm.Communicator, msg string) (string, error) {
	for {
		reply, err := comm.Send(ctx, msg)
		if err == nil {
			return reply, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if err := r.spend(ctx, "language model", err); err != nil {
			return "", err
		}
	}
}

// spend charges one failure to the error budget. It returns nil while the
// budget lasts.
func (r *Run) spend(ctx context.Context, source string, cause error) error {
	r.failures++
	budget := r.engine.cfg.ErrorBudget
	r.logger.WarnContext(ctx, "resource failure",
		slog.String("state", string(r.current)),
		slog.String("source", source),
		slog.Int("failures", r.failures),
		slog.Int("budget", budget),
		redact.Attr(cause))

	if r.failures > budget {
		return fmt.Errorf("%w: %d %s failures, last: %w", ErrErrorBudgetExceeded, r.failures, source, cause)
	}
	return nil
}

// retry runs fn and repeats it while it fails for reasons other than the
// content of the request, charging each failure to the error budget.
// Repository domain errors are returned unchanged.
func (r *Run) retry(ctx context.Context, source string, fn func() error) error {
	for {
		err := fn()
		if err == nil || store.IsDomainError(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := r.spend(ctx, source, err); err != nil {
			return err
		}
	}
}

// execute runs the commands in reply. Protocol and domain errors become
// feedback for the model; repository failures are charged to the error
// budget and reported to the model as well.
func (r *Run) execute(ctx context.Context, registry *command.Registry, reply string) ([]command.Effect, string, error) {
	effects, err := registry.Execute(ctx, reply)
	r.effects = append(r.effects, effects...)
	if err == nil {
		return effects, "", nil
	}

	var ve *command.ValidationError
	var de *command.DomainError
	switch {
	case errors.As(err, &ve), errors.As(err, &de):
		return effects, command.CorrectiveMessage(err), nil
	case command.IsResourceError(err):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return effects, "", ctxErr
		}
		if spendErr := r.spend(ctx, "repository", err); spendErr != nil {
			return effects, "", spendErr
		}
		return effects, command.CorrectiveMessage(err), nil
	default:
		return effects, "", err
	}
}

// commit records an action the run performed directly on the repository.
func (r *Run) commit(ctx context.Context, action history.Action) {
	r.engine.sink.Commit(ctx, action)
}

func (r *Run) emit(ctx context.Context, kind events.Kind, message string) {
	r.engine.emit(ctx, kind, string(r.current), message)
}
