package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// buildStates registers every state with the successors it may move to.
func (e *Engine) buildStates() transitions {
	t := make(transitions)

	t.register(StateClassifyRequest, StateFunc(e.classifyRequest),
		StateRewriteTask, StateClassifyQuestion, StateStartStudy, StateClassifyStudyInput)

	t.register(StateRewriteTask, StateFunc(e.rewriteTask), StateClassifyTask)
	t.register(StateClassifyTask, StateFunc(e.classifyTask),
		StateExecuteTask, StateSelectSearchDecks, StateReferencePreviousCards)
	t.register(StateExecuteTask, StateFunc(e.executeTask), StateFinishedTask, StateMissingInformation)
	t.register(StateReferencePreviousCards, StateFunc(e.referencePreviousCards),
		StateStreamFoundCards, StateMissingInformation)

	t.register(StateSelectSearchDecks, StateFunc(e.selectSearchDecks), StateClassifySearch, StateMissingInformation)
	t.register(StateClassifySearch, StateFunc(e.classifySearch),
		StateExactSearch, StateFuzzySearch, StateContentSearch)
	t.register(StateExactSearch, StateFunc(e.exactSearch), StateVerifySearch)
	t.register(StateFuzzySearch, StateFunc(e.fuzzySearch), StateVerifySearch)
	t.register(StateContentSearch, StateFunc(e.contentSearch), StateVerifySearch)
	t.register(StateVerifySearch, StateFunc(e.verifySearch),
		StateClassifyFoundCards, StateClassifySearch, StateFinishedTask, StateMissingInformation)

	t.register(StateClassifyFoundCards, StateFunc(e.classifyFoundCards),
		StateCopyFoundCards, StateDeleteFoundCards, StateStreamFoundCards)
	t.register(StateCopyFoundCards, StateFunc(e.copyFoundCards), StateFinishedTask)
	t.register(StateDeleteFoundCards, StateFunc(e.deleteFoundCards), StateFinishedTask)
	t.register(StateStreamFoundCards, StateFunc(e.streamFoundCards), StateFinishedTask)

	t.register(StateClassifyQuestion, StateFunc(e.classifyQuestion),
		StateAnswerContentQuestion, StateAnswerSystemQuestion)
	t.register(StateAnswerContentQuestion, StateFunc(e.answerContentQuestion), StateAnswer)
	t.register(StateAnswerSystemQuestion, StateFunc(e.answerSystemQuestion), StateAnswer)

	t.register(StateStartStudy, StateFunc(e.startStudy), StateFinishedStudy)
	t.register(StateClassifyStudyInput, StateFunc(e.classifyStudyInput),
		StateJudgeStudyAnswer, StateExtractStudyAnswer, StateFinishedStudy)
	t.register(StateExtractStudyAnswer, StateFunc(e.extractStudyAnswer), StateJudgeStudyAnswer)
	t.register(StateJudgeStudyAnswer, StateFunc(e.judgeStudyAnswer), StateFinishedStudy)

	t.terminal(StateAnswer, history.ResultAnswer)
	t.terminal(StateFinishedTask, history.ResultTaskFinished)
	t.terminal(StateMissingInformation, history.ResultMissingInformation)
	t.terminal(StateFinishedStudy, history.ResultStudy)

	return t
}

// classifyRequest routes an utterance to the task, question or study
// branch. While a study session runs, every utterance belongs to it.
func (e *Engine) classifyRequest(ctx context.Context, r *Run) (Outcome, error) {
	if e.study != nil {
		return goTo(StateClassifyStudyInput), nil
	}

	prompt, err := renderPrompt(promptClassifyRequest, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		"Your answer must be either 'question', 'task' or 'study'.",
		"question", "task", "study")
	if err != nil {
		return Outcome{}, err
	}

	switch signal {
	case "question":
		return goTo(StateClassifyQuestion), nil
	case "study":
		return goTo(StateStartStudy), nil
	default:
		return goTo(StateRewriteTask), nil
	}
}

// listDecks returns every deck, retrying repository failures.
func (e *Engine) listDecks(ctx context.Context, r *Run) ([]*domain.Deck, error) {
	var decks []*domain.Deck
	err := r.retry(ctx, "repository", func() error {
		var err error
		decks, err = e.repo.ListDecks(ctx)
		return err
	})
	return decks, err
}

// listCards returns the cards of decks in deck order. Decks that
// disappeared in the meantime are skipped.
func (e *Engine) listCards(ctx context.Context, r *Run, decks []*domain.Deck) ([]*domain.Card, error) {
	var all []*domain.Card
	for _, deck := range decks {
		var cards []*domain.Card
		err := r.retry(ctx, "repository", func() error {
			var err error
			cards, err = e.repo.ListCards(ctx, deck.ID)
			return err
		})
		if store.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, cards...)
	}
	return all, nil
}

func renderDeckList(decks []*domain.Deck) string {
	if len(decks) == 0 {
		return "(no decks)"
	}
	var b strings.Builder
	for _, d := range decks {
		fmt.Fprintf(&b, " * %s\n", d.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCards(cards []*domain.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, "\n\n")
}

// renderNumberedCards renders cards with the 1-based numbers card commands use.
func renderNumberedCards(cards []*domain.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = fmt.Sprintf("Card %d:\n%s", i+1, c.String())
	}
	return strings.Join(parts, "\n\n")
}

// summarize joins the messages of executed commands.
func summarize(effects []command.Effect) string {
	var msgs []string
	for _, eff := range effects {
		if eff.Message != "" {
			msgs = append(msgs, eff.Message)
		}
	}
	if len(msgs) == 0 {
		return "No commands were executed."
	}
	return strings.Join(msgs, "\n")
}
