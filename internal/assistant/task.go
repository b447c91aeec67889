package assistant

import (
	"context"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Task kinds as numbered in the task classification prompt: plain tasks
// need no search, search tasks work on found cards.
const (
	firstPlainTask    = 1
	lastPlainTask     = 4
	lastSearchTask    = 8
	previousCardsTask = 9
)

const noPreviousCardsText = "I could not find any cards from earlier in this session to work on. " +
	"Please tell me which cards you mean."

// rewriteTask lets the model restate the request with the session history
// folded in. Without history there is nothing to fold in.
func (e *Engine) rewriteTask(ctx context.Context, r *Run) (Outcome, error) {
	if e.log.IsEmpty() {
		return goTo(StateClassifyTask), nil
	}

	prompt, err := renderPrompt(promptRewriteTask, promptData{
		Input:   r.prompt,
		Queries: e.log.RenderQueries(),
		Actions: e.log.RenderActions(),
	})
	if err != nil {
		return Outcome{}, err
	}

	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(ctx context.Context, reply string) (string, error) {
		rewritten := llm.CleanReply(reply)
		if rewritten == "" {
			return "Please answer only with the rewritten task.", nil
		}
		r.logger.DebugContext(ctx, "task rewritten", slog.String("task", rewritten))
		r.prompt = rewritten
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return goTo(StateClassifyTask), nil
}

func (e *Engine) classifyTask(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptClassifyTask, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	kind, err := r.classifyNumber(ctx, prompt, e.cfg.Attempts.Classification,
		"Please respond with just the number of the best fitting task type.",
		firstPlainTask, previousCardsTask)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case kind <= lastPlainTask:
		return goTo(StateExecuteTask), nil
	case kind <= lastSearchTask:
		return goTo(StateSelectSearchDecks), nil
	default:
		return goTo(StateReferencePreviousCards), nil
	}
}

// executeTask lets the model carry out a task with deck and card commands.
// Failed payloads are corrected until the attempt cap; commands that already
// succeeded stay committed and are reported in the final message.
func (e *Engine) executeTask(ctx context.Context, r *Run) (Outcome, error) {
	decks, err := e.listDecks(ctx, r)
	if err != nil {
		return Outcome{}, err
	}

	prompt, err := renderPrompt(promptExecuteTask, promptData{
		Input:    r.prompt,
		Decks:    renderDeckList(decks),
		Commands: e.tasks.Describe(),
	})
	if err != nil {
		return Outcome{}, err
	}

	missing := false
	err = r.converse(ctx, prompt, e.cfg.Attempts.Execution, func(ctx context.Context, reply string) (string, error) {
		effects, feedback, err := r.execute(ctx, e.tasks, reply)
		if err != nil || feedback != "" {
			return feedback, err
		}
		for _, eff := range effects {
			if eff.Signal == command.SignalMissingInformation {
				missing = true
			}
		}
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if missing {
		return r.finish(StateMissingInformation, summarize(r.effects)), nil
	}
	return r.finish(StateFinishedTask, summarize(r.effects)), nil
}

// referencePreviousCards streams the cards earlier actions of the session
// created or changed, reloaded from the repository.
func (e *Engine) referencePreviousCards(ctx context.Context, r *Run) (Outcome, error) {
	var cards []*domain.Card
	for _, previous := range e.log.ReferencedCards() {
		var card *domain.Card
		err := r.retry(ctx, "repository", func() error {
			var err error
			card, err = e.repo.GetCard(ctx, previous.ID)
			return err
		})
		if store.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return Outcome{}, err
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return r.finish(StateMissingInformation, noPreviousCardsText), nil
	}
	r.found = cards
	return goTo(StateStreamFoundCards), nil
}
