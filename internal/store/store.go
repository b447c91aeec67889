package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// DeckStore defines the interface for deck data persistence.
type DeckStore interface {
	// CreateDeck saves a new deck.
	// Returns ErrDeckExists if a deck with the same name exists.
	CreateDeck(ctx context.Context, deck *domain.Deck) error

	// GetDeck retrieves a deck by its unique ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// FindDeckByName retrieves a deck by its exact name.
	// Returns ErrDeckNotFound if no deck has that name.
	FindDeckByName(ctx context.Context, name string) (*domain.Deck, error)

	// ListDecks returns all decks ordered by name.
	ListDecks(ctx context.Context) ([]*domain.Deck, error)

	// RenameDeck changes the name of a deck and returns the updated deck.
	// Returns ErrDeckNotFound or ErrDeckExists.
	RenameDeck(ctx context.Context, id uuid.UUID, newName string) (*domain.Deck, error)

	// DeleteDeck removes a deck together with all of its cards.
	// Returns ErrDeckNotFound if the deck does not exist.
	DeleteDeck(ctx context.Context, id uuid.UUID) error
}

// CardStore defines the interface for card data persistence.
// Cards are handed out as copies; callers persist edits through UpdateCard.
type CardStore interface {
	// CreateCard saves a new card.
	// Returns ErrDeckNotFound if the card's deck does not exist.
	CreateCard(ctx context.Context, card *domain.Card) error

	// GetCard retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListCards returns the cards of a deck in creation order.
	// Returns ErrDeckNotFound if the deck does not exist.
	ListCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)

	// ListAllCards returns every card of every deck.
	ListAllCards(ctx context.Context) ([]*domain.Card, error)

	// UpdateCard stores a new snapshot of an existing card. The card may be
	// moved to another deck by changing its DeckID.
	// Returns ErrCardNotFound or ErrDeckNotFound.
	UpdateCard(ctx context.Context, card *domain.Card) error

	// DeleteCard removes a card.
	// Returns ErrCardNotFound if the card does not exist.
	DeleteCard(ctx context.Context, id uuid.UUID) error
}

// ReviewStore defines the interface for study statistics persistence.
type ReviewStore interface {
	// GetSchedule returns the schedule of a card. Cards that were never
	// reviewed get a fresh schedule that is due immediately.
	// Returns ErrCardNotFound if the card does not exist.
	GetSchedule(ctx context.Context, cardID uuid.UUID) (*domain.Schedule, error)

	// RecordReview stores a graded review: the card's new state and its next schedule.
	// Returns ErrCardNotFound if the card does not exist.
	RecordReview(ctx context.Context, cardID uuid.UUID, grade domain.Grade, state domain.CardState, next *domain.Schedule) error

	// CountDue returns the number of active cards in a deck that are due at the given time.
	CountDue(ctx context.Context, deckID uuid.UUID, now time.Time) (int, error)
}

// Repository is the complete flashcard repository the assistant works against.
type Repository interface {
	DeckStore
	CardStore
	ReviewStore
}
