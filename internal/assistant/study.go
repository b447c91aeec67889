package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/events"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// studySession is the progress through a deck. It survives between runs.
type studySession struct {
	deck  *domain.Deck
	cards []*domain.Card
	index int
}

func (s *studySession) current() *domain.Card {
	return s.cards[s.index]
}

func (s *studySession) last() bool {
	return s.index == len(s.cards)-1
}

// startStudy selects the deck to study and shows its first question.
func (e *Engine) startStudy(ctx context.Context, r *Run) (Outcome, error) {
	decks, err := e.listDecks(ctx, r)
	if err != nil {
		return Outcome{}, err
	}

	byName := make(map[string]*domain.Deck, len(decks))
	lines := make([]string, len(decks))
	for i, deck := range decks {
		byName[deck.Name] = deck
		cards, err := e.listCards(ctx, r, []*domain.Deck{deck})
		if err != nil {
			return Outcome{}, err
		}
		lines[i] = fmt.Sprintf("name: %q, cards: %d", deck.Name, len(cards))
	}

	prompt, err := renderPrompt(promptStartStudy, promptData{Input: r.prompt, Decks: strings.Join(lines, "\n")})
	if err != nil {
		return Outcome{}, err
	}

	var deck *domain.Deck
	err = r.converse(ctx, prompt, e.cfg.Attempts.StudyDeck, func(_ context.Context, reply string) (string, error) {
		name := strings.TrimSpace(strings.ReplaceAll(llm.StripBlock(reply, "think"), `"`, ""))
		if name == "None" {
			return "", nil
		}
		d, ok := byName[name]
		if !ok {
			return fmt.Sprintf("No deck is named '%s'.\n"+
				`**Answer only with the exact name of a deck, or "None". Do not answer anything else.**`, name), nil
		}
		deck = d
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}
	if deck == nil {
		return r.finish(StateFinishedStudy,
			"The deck you want to learn is not found. Please check the name and try again."), nil
	}

	cards, err := e.listCards(ctx, r, []*domain.Deck{deck})
	if err != nil {
		return Outcome{}, err
	}
	active := cards[:0:0]
	for _, c := range cards {
		if c.State.IsActive() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return r.finish(StateFinishedStudy, "The deck you want to learn is empty."), nil
	}

	e.study = &studySession{deck: deck, cards: active}
	r.logger.InfoContext(ctx, "study session started",
		slog.String("deck", deck.Name),
		slog.Int("cards", len(active)))
	r.emit(ctx, events.KindState, fmt.Sprintf("Learning session for deck '%s' started.", deck.Name))

	return r.finish(StateFinishedStudy, fmt.Sprintf("Enjoy your learning!\nQuestion: %s", active[0].Question)), nil
}

// classifyStudyInput decides whether the user answered the current card,
// ended the session, or both.
func (e *Engine) classifyStudyInput(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptClassifyStudyInput, promptData{
		Input:    r.prompt,
		Question: e.study.current().Question,
	})
	if err != nil {
		return Outcome{}, err
	}

	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		"Answer only with one of the following: 'answer', 'end' or 'both'.",
		"answer", "end", "both")
	if err != nil {
		return Outcome{}, err
	}

	switch signal {
	case "answer":
		r.studyAnswer = r.prompt
		return goTo(StateJudgeStudyAnswer), nil
	case "both":
		return goTo(StateExtractStudyAnswer), nil
	default:
		e.endStudy(ctx, r)
		return r.finish(StateFinishedStudy, "Exit study mode."), nil
	}
}

func (e *Engine) extractStudyAnswer(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptExtractStudyAnswer, promptData{Input: r.prompt})
	if err != nil {
		return Outcome{}, err
	}

	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		answer := strings.TrimSpace(llm.StripBlock(reply, "think"))
		if answer == "" {
			return "Please return only the answer part of the input.", nil
		}
		r.studyAnswer = answer
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	r.endStudy = true
	return goTo(StateJudgeStudyAnswer), nil
}

// judgeStudyAnswer grades the answer, records the review and moves on to
// the next card.
func (e *Engine) judgeStudyAnswer(ctx context.Context, r *Run) (Outcome, error) {
	card := e.study.current()
	prompt, err := renderPrompt(promptJudgeStudyAnswer, promptData{
		Question:   card.Question,
		Answer:     card.Answer,
		UserAnswer: r.studyAnswer,
	})
	if err != nil {
		return Outcome{}, err
	}

	grades := make([]string, len(domain.Grades))
	for i, g := range domain.Grades {
		grades[i] = string(g)
	}
	signal, err := r.classify(ctx, prompt, e.cfg.Attempts.Classification,
		"Answer only with one of: 'again', 'hard', 'good' or 'easy'.", grades...)
	if err != nil {
		return Outcome{}, err
	}
	grade, err := domain.ParseGrade(signal)
	if err != nil {
		return Outcome{}, err
	}

	if err := e.recordReview(ctx, r, card, grade); err != nil {
		return Outcome{}, err
	}

	msg := fmt.Sprintf("Your answer to the previous card was rated as: %s.\n", grade)
	switch {
	case e.study.last():
		e.endStudy(ctx, r)
		msg += "Congratulations on learning all the cards!"
	case r.endStudy:
		e.endStudy(ctx, r)
		msg += "Exit study mode."
	default:
		e.study.index++
		msg += "Question: " + e.study.current().Question
	}
	return r.finish(StateFinishedStudy, msg), nil
}

// recordReview stores the graded review. Cards deleted during the session
// are skipped.
func (e *Engine) recordReview(ctx context.Context, r *Run, card *domain.Card, grade domain.Grade) error {
	now := e.now()

	var schedule *domain.Schedule
	err := r.retry(ctx, "repository", func() error {
		var err error
		schedule, err = e.repo.GetSchedule(ctx, card.ID)
		return err
	})
	if store.IsNotFoundError(err) {
		r.logger.WarnContext(ctx, "studied card no longer exists", slog.String("card_id", card.ID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	next, err := e.scheduler.Next(schedule, grade, now)
	if err != nil {
		return fmt.Errorf("schedule review: %w", err)
	}
	state := domain.StateAfter(card.State, grade)

	err = r.retry(ctx, "repository", func() error {
		return e.repo.RecordReview(ctx, card.ID, grade, state, next)
	})
	if store.IsNotFoundError(err) {
		return nil
	}
	if err != nil {
		return err
	}

	card.State = state
	r.emit(ctx, events.KindAction, fmt.Sprintf("Reviewed card %s: %s", card.Question, grade))
	return nil
}

func (e *Engine) endStudy(ctx context.Context, r *Run) {
	e.study = nil
	r.emit(ctx, events.KindState, "Exit study mode.")
}
