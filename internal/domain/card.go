package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card does not reference a deck.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardQuestionEmpty is returned when a card's question is empty.
	ErrCardQuestionEmpty = errors.New("card question cannot be empty")

	// ErrCardAnswerEmpty is returned when a card's answer is empty.
	ErrCardAnswerEmpty = errors.New("card answer cannot be empty")
)

// Flag is a colored marker a user can put on a card.
type Flag string

// Known flags
const (
	FlagNone      Flag = "none"
	FlagRed       Flag = "red"
	FlagOrange    Flag = "orange"
	FlagGreen     Flag = "green"
	FlagBlue      Flag = "blue"
	FlagPink      Flag = "pink"
	FlagTurquoise Flag = "turquoise"
	FlagPurple    Flag = "purple"
)

// Flags lists every known flag in display order.
var Flags = []Flag{FlagNone, FlagRed, FlagOrange, FlagGreen, FlagBlue, FlagPink, FlagTurquoise, FlagPurple}

// ParseFlag converts a flag name to a Flag, ignoring case and surrounding whitespace.
func ParseFlag(s string) (Flag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, f := range Flags {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid flags: %s)", ErrInvalidFlag, s, joinNames(Flags))
}

// IsValid reports whether f is one of the known flags.
func (f Flag) IsValid() bool {
	return slices.Contains(Flags, f)
}

// CardState is the scheduling state of a card.
type CardState string

// Known card states
const (
	CardStateNew       CardState = "new"
	CardStateLearning  CardState = "learning"
	CardStateReview    CardState = "review"
	CardStateSuspended CardState = "suspended"
	CardStateBuried    CardState = "buried"
)

// CardStates lists every known card state in display order.
var CardStates = []CardState{CardStateNew, CardStateLearning, CardStateReview, CardStateSuspended, CardStateBuried}

// ParseCardState converts a state name to a CardState, ignoring case and surrounding whitespace.
func ParseCardState(s string) (CardState, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, st := range CardStates {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid states: %s)", ErrInvalidCardState, s, joinNames(CardStates))
}

// IsValid reports whether s is one of the known card states.
func (s CardState) IsValid() bool {
	return slices.Contains(CardStates, s)
}

// IsActive reports whether cards in this state take part in study sessions.
func (s CardState) IsActive() bool {
	return s != CardStateSuspended && s != CardStateBuried
}

// Card is a single flashcard. Edits never mutate a stored card in place;
// repositories hand out copies, so a Card value is a snapshot.
type Card struct {
	ID       uuid.UUID `json:"id"`
	DeckID   uuid.UUID `json:"deck_id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Flag     Flag      `json:"flag"`
	State    CardState `json:"state"`
}

// NewCard creates a new Card in the given deck with a fresh identifier.
// Empty flag and state default to FlagNone and CardStateNew.
func NewCard(deckID uuid.UUID, question, answer string, flag Flag, state CardState) (*Card, error) {
	if flag == "" {
		flag = FlagNone
	}
	if state == "" {
		state = CardStateNew
	}

	card := &Card{
		ID:       uuid.New(),
		DeckID:   deckID,
		Question: question,
		Answer:   answer,
		Flag:     flag,
		State:    state,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if strings.TrimSpace(c.Question) == "" {
		return ErrCardQuestionEmpty
	}

	if strings.TrimSpace(c.Answer) == "" {
		return ErrCardAnswerEmpty
	}

	if !c.Flag.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFlag, c.Flag)
	}

	if !c.State.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCardState, c.State)
	}

	return nil
}

// Clone returns a copy of the card that can be modified independently.
func (c *Card) Clone() *Card {
	clone := *c
	return &clone
}

// String renders the card the way it is shown to the language model.
func (c *Card) String() string {
	return fmt.Sprintf("Question: %s\nAnswer: %s\nFlag: %s\nState: %s", c.Question, c.Answer, c.Flag, c.State)
}

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
