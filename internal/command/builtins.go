package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Names of the built-in operations.
const (
	CreateDeck         = "create_deck"
	RenameDeck         = "rename_deck"
	DeleteDeck         = "delete_deck"
	AddCard            = "add_card"
	MissingInformation = "missing_information"
	EditCard           = "edit_card"
	DeleteCard         = "delete_card"
	AbortStream        = "abort_stream"
)

// TaskCommands are the operations allowed when executing a task that needs
// no search.
var TaskCommands = []string{CreateDeck, RenameDeck, DeleteDeck, AddCard, MissingInformation}

// StreamCommands are the operations allowed inside a card stream.
var StreamCommands = []string{EditCard, DeleteCard, AbortStream}

// CreateDeckPayload is the payload of create_deck.
type CreateDeckPayload struct {
	Name string `json:"name"`
}

// RenameDeckPayload is the payload of rename_deck.
type RenameDeckPayload struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// DeleteDeckPayload is the payload of delete_deck.
type DeleteDeckPayload struct {
	Name string `json:"name"`
}

// AddCardPayload is the payload of add_card. Empty state and flag default
// to new and none.
type AddCardPayload struct {
	DeckName string `json:"deck_name"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	State    string `json:"state" validate:"omitempty,card_state"`
	Flag     string `json:"flag" validate:"omitempty,flag"`
}

// MissingInformationPayload is the payload of missing_information.
type MissingInformationPayload struct {
	Message string `json:"message"`
}

// EditCardPayload is the payload of edit_card. Absent keys leave the field unchanged.
type EditCardPayload struct {
	Card     int     `json:"card" validate:"gte=1"`
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
	Flag     *string `json:"flag" validate:"omitempty,flag"`
	State    *string `json:"state" validate:"omitempty,card_state"`
}

// DeleteCardPayload is the payload of delete_card.
type DeleteCardPayload struct {
	Card int `json:"card" validate:"gte=1"`
}

// AbortStreamPayload is the payload of abort_stream.
type AbortStreamPayload struct {
	Reason string `json:"reason"`
}

type builtins struct {
	repo store.Repository
}

// RegisterBuiltins adds every built-in operation, backed by repo, to r.
func RegisterBuiltins(r *Registry, repo store.Repository) {
	if repo == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("repository cannot be nil")
	}
	b := &builtins{repo: repo}

	Register(r, Definition[CreateDeckPayload]{
		Name:     CreateDeck,
		Example:  `{"task": "create_deck", "name": "<deck name here>"}`,
		Doc:      "Creates a new, empty deck. Fails if a deck with this name exists.",
		Required: []string{"name"},
		Handle:   b.createDeck,
	})
	Register(r, Definition[RenameDeckPayload]{
		Name:     RenameDeck,
		Example:  `{"task": "rename_deck", "old_name": "<old deck name here>", "new_name": "<new deck name here>"}`,
		Doc:      "Renames an existing deck. Fails if no deck has the old name or a deck has the new name.",
		Required: []string{"old_name", "new_name"},
		Handle:   b.renameDeck,
	})
	Register(r, Definition[DeleteDeckPayload]{
		Name:     DeleteDeck,
		Example:  `{"task": "delete_deck", "name": "<deck name here>"}`,
		Doc:      "Deletes a deck and all of its cards.",
		Required: []string{"name"},
		Handle:   b.deleteDeck,
	})
	Register(r, Definition[AddCardPayload]{
		Name: AddCard,
		Example: `{"task": "add_card", "deck_name": "<deck name here>", "question": "<question here>", ` +
			`"answer": "<answer here>", "state": "<card state here>", "flag": "<flag here>"}`,
		Doc: fmt.Sprintf("Adds a new card to an existing deck. The user input comes from speech-to-text, "+
			"so fix capitalization in question and answer.\nValid flags are: %s\nValid card states are: %s",
			quoteAll(domain.Flags), quoteAll(domain.CardStates)),
		Required: []string{"deck_name", "question", "answer"},
		Optional: []string{"state", "flag"},
		Handle:   b.addCard,
	})
	Register(r, Definition[MissingInformationPayload]{
		Name:     MissingInformation,
		Example:  `{"task": "missing_information", "message": "<what the user has to tell you>"}`,
		Doc:      "Stops and asks the user for information you would otherwise have to guess.",
		Optional: []string{"message"},
		Handle:   b.missingInformation,
	})
	Register(r, Definition[EditCardPayload]{
		Name: EditCard,
		Example: `{"task": "edit_card", "card": <card number>, "question": "<new question>", ` +
			`"answer": "<new answer>", "flag": "<new flag>", "state": "<new card state>"}`,
		Doc: fmt.Sprintf("Edits one of the shown cards. Leave out the keys you do not want to change.\n"+
			"Valid flags are: %s\nValid card states are: %s", quoteAll(domain.Flags), quoteAll(domain.CardStates)),
		Required: []string{"card"},
		Optional: []string{"question", "answer", "flag", "state"},
		Check: func(ctx context.Context, p EditCardPayload) error {
			_, err := scopedCard(ctx, p.Card)
			return err
		},
		Handle: b.editCard,
	})
	Register(r, Definition[DeleteCardPayload]{
		Name:     DeleteCard,
		Example:  `{"task": "delete_card", "card": <card number>}`,
		Doc:      "Deletes one of the shown cards.",
		Required: []string{"card"},
		Check: func(ctx context.Context, p DeleteCardPayload) error {
			_, err := scopedCard(ctx, p.Card)
			return err
		},
		Handle: b.deleteCard,
	})
	Register(r, Definition[AbortStreamPayload]{
		Name:      AbortStream,
		Example:   `{"task": "abort_stream", "reason": "<why you stop>"}`,
		Doc:       "Ends the card stream before all cards were shown. Only use it if something went wrong. It must be the only command.",
		Optional:  []string{"reason"},
		Exclusive: true,
		Handle:    b.abortStream,
	})
}

func missing(message string) (Effect, error) {
	return Effect{Message: message, Signal: SignalMissingInformation}, nil
}

func (b *builtins) createDeck(ctx context.Context, p CreateDeckPayload) (Effect, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return missing("You must provide a deck name.")
	}

	if _, err := b.repo.FindDeckByName(ctx, name); err == nil {
		return Effect{}, &DomainError{Err: fmt.Errorf("%w %q", store.ErrDeckExists, name)}
	} else if !errors.Is(err, store.ErrNotFound) {
		return Effect{}, err
	}

	deck, err := domain.NewDeck(name)
	if err != nil {
		return Effect{}, err
	}
	if err := b.repo.CreateDeck(ctx, deck); err != nil {
		return Effect{}, err
	}

	return Effect{
		Message: fmt.Sprintf("Deck '%s' created successfully.", deck.Name),
		Actions: []history.Action{{
			Description: fmt.Sprintf("Created deck: %s", deck.Name),
			Deck:        deck,
		}},
	}, nil
}

func (b *builtins) renameDeck(ctx context.Context, p RenameDeckPayload) (Effect, error) {
	oldName, newName := strings.TrimSpace(p.OldName), strings.TrimSpace(p.NewName)
	if oldName == "" || newName == "" {
		return missing("You must provide both the old and the new deck name.")
	}

	deck, err := b.deckByName(ctx, oldName)
	if err != nil {
		return Effect{}, err
	}

	if _, err := b.repo.FindDeckByName(ctx, newName); err == nil {
		return Effect{}, &DomainError{Err: fmt.Errorf("%w %q", store.ErrDeckExists, newName)}
	} else if !errors.Is(err, store.ErrNotFound) {
		return Effect{}, err
	}

	renamed, err := b.repo.RenameDeck(ctx, deck.ID, newName)
	if err != nil {
		return Effect{}, err
	}

	return Effect{
		Message: fmt.Sprintf("Deck '%s' renamed to '%s'.", oldName, renamed.Name),
		Actions: []history.Action{{
			Description: fmt.Sprintf("Renamed deck from %s to %s", oldName, renamed.Name),
			Deck:        renamed,
		}},
	}, nil
}

func (b *builtins) deleteDeck(ctx context.Context, p DeleteDeckPayload) (Effect, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return missing("You must provide the name of the deck to delete.")
	}

	deck, err := b.deckByName(ctx, name)
	if err != nil {
		return Effect{}, err
	}
	if err := b.repo.DeleteDeck(ctx, deck.ID); err != nil {
		return Effect{}, err
	}

	return Effect{
		Message: fmt.Sprintf("Deck '%s' deleted.", deck.Name),
		Actions: []history.Action{{Description: fmt.Sprintf("Deleted deck: %s", deck.Name)}},
	}, nil
}

func (b *builtins) addCard(ctx context.Context, p AddCardPayload) (Effect, error) {
	deckName := strings.TrimSpace(p.DeckName)
	question := strings.TrimSpace(p.Question)
	answer := strings.TrimSpace(p.Answer)
	switch {
	case deckName == "":
		return missing("You must provide the name of the deck to add the card to.")
	case question == "":
		return missing("You must provide a question for the card.")
	case answer == "":
		return missing("You must provide an answer for the card.")
	}

	flag := domain.FlagNone
	if p.Flag != "" {
		parsed, err := domain.ParseFlag(p.Flag)
		if err != nil {
			return Effect{}, err
		}
		flag = parsed
	}
	state := domain.CardStateNew
	if p.State != "" {
		parsed, err := domain.ParseCardState(p.State)
		if err != nil {
			return Effect{}, err
		}
		state = parsed
	}

	deck, err := b.deckByName(ctx, deckName)
	if err != nil {
		return Effect{}, err
	}

	card, err := domain.NewCard(deck.ID, question, answer, flag, state)
	if err != nil {
		return Effect{}, err
	}
	if err := b.repo.CreateCard(ctx, card); err != nil {
		return Effect{}, err
	}

	return Effect{
		Message: fmt.Sprintf("Card added to deck '%s'.", deck.Name),
		Actions: []history.Action{{
			Description: fmt.Sprintf("Added card to deck %s: %s - %s", deck.Name, card.Question, card.Answer),
			Deck:        deck,
			Card:        card.Clone(),
		}},
	}, nil
}

func (b *builtins) missingInformation(_ context.Context, p MissingInformationPayload) (Effect, error) {
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		msg = "Some information is missing to execute your request. Please provide more details."
	}
	return missing(msg)
}

func (b *builtins) editCard(ctx context.Context, p EditCardPayload) (Effect, error) {
	shown, err := scopedCard(ctx, p.Card)
	if err != nil {
		return Effect{}, err
	}

	current, err := b.repo.GetCard(ctx, shown.ID)
	if err != nil {
		return Effect{}, err
	}
	updated := current.Clone()

	var descriptions []string
	if p.Question != nil && *p.Question != current.Question {
		updated.Question = *p.Question
		descriptions = append(descriptions,
			fmt.Sprintf("Edited card question from %s to %s", current.Question, updated.Question))
	}
	if p.Answer != nil && *p.Answer != current.Answer {
		updated.Answer = *p.Answer
		descriptions = append(descriptions,
			fmt.Sprintf("Edited card answer of card %s from %s to %s", updated.Question, current.Answer, updated.Answer))
	}
	if p.Flag != nil {
		flag, err := domain.ParseFlag(*p.Flag)
		if err != nil {
			return Effect{}, err
		}
		if flag != current.Flag {
			updated.Flag = flag
			descriptions = append(descriptions,
				fmt.Sprintf("Edited card flag of card %s from %s to %s", updated.Question, current.Flag, flag))
		}
	}
	if p.State != nil {
		state, err := domain.ParseCardState(*p.State)
		if err != nil {
			return Effect{}, err
		}
		if state != current.State {
			updated.State = state
			descriptions = append(descriptions,
				fmt.Sprintf("Edited card state of card %s from %s to %s", updated.Question, current.State, state))
		}
	}

	if len(descriptions) == 0 {
		return Effect{Message: fmt.Sprintf("Card %d left unchanged.", p.Card)}, nil
	}

	if err := updated.Validate(); err != nil {
		return Effect{}, err
	}
	if err := b.repo.UpdateCard(ctx, updated); err != nil {
		return Effect{}, err
	}

	actions := make([]history.Action, len(descriptions))
	for i, d := range descriptions {
		actions[i] = history.Action{Description: d, Card: updated.Clone()}
	}
	return Effect{
		Message: fmt.Sprintf("Card %d edited.", p.Card),
		Actions: actions,
	}, nil
}

func (b *builtins) deleteCard(ctx context.Context, p DeleteCardPayload) (Effect, error) {
	card, err := scopedCard(ctx, p.Card)
	if err != nil {
		return Effect{}, err
	}
	if err := b.repo.DeleteCard(ctx, card.ID); err != nil {
		return Effect{}, err
	}

	return Effect{
		Message: fmt.Sprintf("Card %d deleted.", p.Card),
		Actions: []history.Action{{
			Description: fmt.Sprintf("Deleted card %s", card.Question),
			Card:        card.Clone(),
		}},
	}, nil
}

func (b *builtins) abortStream(_ context.Context, p AbortStreamPayload) (Effect, error) {
	msg := "Stream aborted."
	if reason := strings.TrimSpace(p.Reason); reason != "" {
		msg = fmt.Sprintf("Stream aborted: %s", reason)
	}
	return Effect{Message: msg, Signal: SignalAbort}, nil
}

// deckByName looks a deck up by its exact name. An unknown name becomes a
// DomainError with the closest existing names as suggestions.
func (b *builtins) deckByName(ctx context.Context, name string) (*domain.Deck, error) {
	deck, err := b.repo.FindDeckByName(ctx, name)
	if err == nil {
		return deck, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	decks, listErr := b.repo.ListDecks(ctx)
	if listErr != nil {
		return nil, listErr
	}
	names := make([]string, len(decks))
	for i, d := range decks {
		names[i] = d.Name
	}

	return nil, &DomainError{
		Err:         fmt.Errorf("%w %q", store.ErrDeckNotFound, name),
		Suggestions: SuggestDecks(names, name, DefaultSuggestions),
	}
}
