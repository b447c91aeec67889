package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/search"
)

func (e *Engine) classifyQuestion(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptClassifyQuestion, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		"Your answer must be either 'content' or 'system'.", "content", "system")
	if err != nil {
		return Outcome{}, err
	}

	if signal == "system" {
		return goTo(StateAnswerSystemQuestion), nil
	}
	return goTo(StateAnswerContentQuestion), nil
}

// answerContentQuestion answers from the cards the index ranks highest.
func (e *Engine) answerContentQuestion(ctx context.Context, r *Run) (Outcome, error) {
	var hits []search.Hit
	err := r.retry(ctx, "search index", func() error {
		var err error
		hits, err = e.index.SearchCards(ctx, r.prompt, e.cfg.QuestionTopK)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	prompt, err := renderPrompt(promptAnswerContent, promptData{Input: r.prompt, Cards: renderHits(hits)})
	if err != nil {
		return Outcome{}, err
	}
	return e.answer(ctx, r, prompt)
}

// answerSystemQuestion answers from an overview of decks, card counts and
// due counts.
func (e *Engine) answerSystemQuestion(ctx context.Context, r *Run) (Outcome, error) {
	overview, err := e.overview(ctx, r)
	if err != nil {
		return Outcome{}, err
	}

	prompt, err := renderPrompt(promptAnswerSystem, promptData{Input: r.prompt, Overview: overview})
	if err != nil {
		return Outcome{}, err
	}
	return e.answer(ctx, r, prompt)
}

func (e *Engine) answer(ctx context.Context, r *Run, prompt string) (Outcome, error) {
	var answer string
	err := r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		answer = strings.TrimSpace(llm.StripBlock(reply, "think"))
		if answer == "" {
			return "Please answer the question in one short sentence.", nil
		}
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return r.finish(StateAnswer, answer), nil
}

func (e *Engine) overview(ctx context.Context, r *Run) (string, error) {
	decks, err := e.listDecks(ctx, r)
	if err != nil {
		return "", err
	}
	if len(decks) == 0 {
		return "There are no decks.", nil
	}

	now := e.now()
	var b strings.Builder
	fmt.Fprintf(&b, "There are %d decks:\n", len(decks))
	for _, deck := range decks {
		var cards, due int
		err := r.retry(ctx, "repository", func() error {
			list, err := e.repo.ListCards(ctx, deck.ID)
			if err != nil {
				return err
			}
			cards = len(list)
			due, err = e.repo.CountDue(ctx, deck.ID, now)
			return err
		})
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " * %s: %d cards, %d due for study\n", deck.Name, cards, due)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// renderHits renders index hits as "question - answer" lines.
func renderHits(hits []search.Hit) string {
	if len(hits) == 0 {
		return "(no cards found)"
	}
	lines := make([]string, len(hits))
	for i, h := range hits {
		text := strings.TrimPrefix(h.Text, "Q: ")
		text = strings.Replace(text, "\nA: ", " - ", 1)
		lines[i] = strings.ReplaceAll(text, "\n", " ")
	}
	return strings.Join(lines, "\n")
}
