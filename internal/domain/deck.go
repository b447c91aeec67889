package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Deck-specific validation errors
var (
	// ErrDeckIDEmpty is returned when a deck ID is empty or nil.
	ErrDeckIDEmpty = errors.New("deck ID cannot be empty")

	// ErrDeckNameEmpty is returned when a deck name is empty or only whitespace.
	ErrDeckNameEmpty = errors.New("deck name cannot be empty")
)

// Deck is a named collection of cards. Deck names are unique within a repository.
type Deck struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NewDeck creates a new Deck with a fresh identifier.
// Returns an error if the name is empty.
func NewDeck(name string) (*Deck, error) {
	deck := &Deck{
		ID:   uuid.New(),
		Name: name,
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrDeckIDEmpty
	}

	if strings.TrimSpace(d.Name) == "" {
		return ErrDeckNameEmpty
	}

	return nil
}

// String renders the deck the way it is shown to the language model.
func (d *Deck) String() string {
	return fmt.Sprintf("Deck '%s'", d.Name)
}
