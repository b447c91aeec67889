package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/store"
	"github.com/phrazzld/scry-assistant/internal/stream"
)

// Operations on found cards as numbered in the prompt. Editing (3) and
// deleting some of the cards (4) both stream the cards.
const (
	opCopy       = 1
	opDeleteAll  = 2
	opDeleteSome = 4
)

const (
	streamContinue = "\n\nSend more commands for these cards, or an empty list [] to continue with the next cards."
	streamActive   = "\n\nThe card stream is still active. Send abort_stream on its own only if you must end it early."
)

func (e *Engine) classifyFoundCards(ctx context.Context, r *Run) (Outcome, error) {
	prompt, err := renderPrompt(promptClassifyFoundCards, promptData{Input: r.prompt, Total: len(r.found)})
	if err != nil {
		return Outcome{}, err
	}

	op, err := r.classifyNumber(ctx, prompt, e.cfg.Attempts.Classification,
		"Please respond with just the number of the operation.", opCopy, opDeleteSome)
	if err != nil {
		return Outcome{}, err
	}

	switch op {
	case opCopy:
		return goTo(StateCopyFoundCards), nil
	case opDeleteAll:
		return goTo(StateDeleteFoundCards), nil
	default:
		return goTo(StateStreamFoundCards), nil
	}
}

func (e *Engine) deleteFoundCards(ctx context.Context, r *Run) (Outcome, error) {
	deleted := 0
	for _, card := range r.found {
		err := r.retry(ctx, "repository", func() error {
			return e.repo.DeleteCard(ctx, card.ID)
		})
		if store.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return Outcome{}, err
		}
		deleted++
		r.commit(ctx, history.Action{
			Description: fmt.Sprintf("Deleted card %s", card.Question),
			Card:        card.Clone(),
		})
	}
	return r.finish(StateFinishedTask, fmt.Sprintf("%d cards deleted.", deleted)), nil
}

// copyFoundCards asks for a target deck, creates it when it does not exist
// and copies every found card into it.
func (e *Engine) copyFoundCards(ctx context.Context, r *Run) (Outcome, error) {
	decks, err := e.listDecks(ctx, r)
	if err != nil {
		return Outcome{}, err
	}

	prompt, err := renderPrompt(promptCopyFoundCards, promptData{
		Input: r.prompt,
		Total: len(r.found),
		Decks: renderDeckList(decks),
	})
	if err != nil {
		return Outcome{}, err
	}

	var name string
	err = r.converse(ctx, prompt, e.cfg.Attempts.Parameters, func(_ context.Context, reply string) (string, error) {
		candidate := llm.CleanReply(reply)
		if _, err := domain.NewDeck(candidate); err != nil {
			return fmt.Sprintf("%q cannot be used as a deck name: %v. Please answer only with the name of the deck.", candidate, err), nil
		}
		name = candidate
		return "", nil
	})
	if err != nil {
		return Outcome{}, err
	}

	deck, created, err := e.findOrCreateDeck(ctx, r, name)
	if err != nil {
		return Outcome{}, err
	}

	for _, card := range r.found {
		cp, err := domain.NewCard(deck.ID, card.Question, card.Answer, card.Flag, card.State)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.retry(ctx, "repository", func() error { return e.repo.CreateCard(ctx, cp) }); err != nil {
			return Outcome{}, err
		}
		r.commit(ctx, history.Action{
			Description: fmt.Sprintf("Copied card %s to deck %s", cp.Question, deck.Name),
			Deck:        deck,
			Card:        cp.Clone(),
		})
	}

	if created {
		return r.finish(StateFinishedTask,
			fmt.Sprintf("%d cards copied to newly created deck %s.", len(r.found), deck.Name)), nil
	}
	return r.finish(StateFinishedTask,
		fmt.Sprintf("%d cards copied to existing deck %s.", len(r.found), deck.Name)), nil
}

func (e *Engine) findOrCreateDeck(ctx context.Context, r *Run, name string) (*domain.Deck, bool, error) {
	var deck *domain.Deck
	err := r.retry(ctx, "repository", func() error {
		var err error
		deck, err = e.repo.FindDeckByName(ctx, name)
		return err
	})
	if err == nil {
		return deck, false, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, false, err
	}

	deck, err = domain.NewDeck(name)
	if err != nil {
		return nil, false, err
	}
	err = r.retry(ctx, "repository", func() error { return e.repo.CreateDeck(ctx, deck) })
	if errors.Is(err, store.ErrDeckExists) {
		// Created concurrently by another session.
		return e.findOrCreateDeck(ctx, r, name)
	}
	if err != nil {
		return nil, false, err
	}

	r.commit(ctx, history.Action{Description: "Created deck: " + deck.Name, Deck: deck})
	return deck, true, nil
}

// streamFoundCards shows the found cards to the model chunk by chunk. Every
// chunk lives in its own visibility block, so the model never sees earlier
// chunks. An empty command list moves on to the next chunk; abort_stream
// ends the stream early.
func (e *Engine) streamFoundCards(ctx context.Context, r *Run) (Outcome, error) {
	chunks, err := stream.New(r.found, e.cfg.ChunkSize)
	if err != nil {
		return Outcome{}, err
	}

	intro, err := renderPrompt(promptStream, promptData{Input: r.prompt, Commands: e.stream.Describe()})
	if err != nil {
		return Outcome{}, err
	}
	comm := r.communicator()
	comm.AddMessage(intro)

	counts := make(map[string]int)
	aborted := ""
	for chunks.HasNext() && aborted == "" {
		chunk := chunks.NextChunk()
		aborted, err = e.streamChunk(command.WithScope(ctx, chunk), r, comm, chunk, counts)
		if err != nil {
			return Outcome{}, err
		}
	}

	summary := fmt.Sprintf("%d cards handled in a stream (%s).", len(r.found), renderCounts(counts))
	if aborted != "" {
		summary = fmt.Sprintf("%s\n%d of %d cards were shown (%s).",
			aborted, chunks.Consumed(), chunks.Len(), renderCounts(counts))
	}
	return r.finish(StateFinishedTask, summary), nil
}

// streamChunk runs the conversation about one chunk and returns the abort
// message if the model ended the stream.
func (e *Engine) streamChunk(ctx context.Context, r *Run, comm *llm.Communicator, chunk []*domain.Card, counts map[string]int) (string, error) {
	comm.StartVisibilityBlock()
	msg := "The next cards are:\n\n" + renderNumberedCards(chunk)
	failures := 0
	for messages := 0; ; messages++ {
		if messages == e.cfg.Attempts.ChunkMessages {
			return "", &ExhaustedError{State: r.current, Attempts: messages, Feedback: msg}
		}

		reply, err := r.send(ctx, comm, msg)
		if err != nil {
			return "", err
		}

		effects, feedback, err := r.execute(ctx, e.stream, reply)
		if err != nil {
			return "", err
		}

		aborted := ""
		for _, eff := range effects {
			if eff.Signal == command.SignalAbort {
				aborted = eff.Message
				continue
			}
			counts[eff.Command]++
		}

		switch {
		case feedback != "":
			failures++
			if failures > e.cfg.Attempts.ChunkErrors {
				return "", &ExhaustedError{State: r.current, Attempts: failures, Feedback: feedback}
			}
			msg = feedback + streamActive
		case aborted != "", len(effects) == 0:
			return aborted, comm.EndVisibilityBlock()
		default:
			msg = summarize(effects) + streamContinue
		}
	}
}

func renderCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no changes"
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}
