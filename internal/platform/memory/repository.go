package memory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Repository is a mutex-guarded, map-backed store.Repository.
// All values are copied on the way in and out.
type Repository struct {
	logger *slog.Logger

	mu        sync.RWMutex
	decks     map[uuid.UUID]*domain.Deck
	cards     map[uuid.UUID]*domain.Card
	cardOrder []uuid.UUID
	schedules map[uuid.UUID]*domain.Schedule
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates an empty repository.
func NewRepository(logger *slog.Logger) *Repository {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil")
	}
	return &Repository{
		logger:    logger.With(slog.String("component", "memory_repository")),
		decks:     make(map[uuid.UUID]*domain.Deck),
		cards:     make(map[uuid.UUID]*domain.Card),
		schedules: make(map[uuid.UUID]*domain.Schedule),
	}
}

// CreateDeck implements store.DeckStore.
func (r *Repository) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deckByNameLocked(deck.Name) != nil {
		return store.ErrDeckExists
	}
	d := *deck
	r.decks[d.ID] = &d

	r.logger.DebugContext(ctx, "deck created",
		slog.String("deck_id", d.ID.String()),
		slog.String("name", d.Name))
	return nil
}

// GetDeck implements store.DeckStore.
func (r *Repository) GetDeck(_ context.Context, id uuid.UUID) (*domain.Deck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	out := *d
	return &out, nil
}

// FindDeckByName implements store.DeckStore.
func (r *Repository) FindDeckByName(_ context.Context, name string) (*domain.Deck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := r.deckByNameLocked(name)
	if d == nil {
		return nil, store.ErrDeckNotFound
	}
	out := *d
	return &out, nil
}

// ListDecks implements store.DeckStore.
func (r *Repository) ListDecks(_ context.Context) ([]*domain.Deck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decks := make([]*domain.Deck, 0, len(r.decks))
	for _, d := range r.decks {
		out := *d
		decks = append(decks, &out)
	}
	slices.SortFunc(decks, func(a, b *domain.Deck) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return decks, nil
}

// RenameDeck implements store.DeckStore.
func (r *Repository) RenameDeck(ctx context.Context, id uuid.UUID, newName string) (*domain.Deck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	if other := r.deckByNameLocked(newName); other != nil && other.ID != id {
		return nil, store.ErrDeckExists
	}

	renamed := &domain.Deck{ID: d.ID, Name: newName}
	if err := renamed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	r.decks[id] = renamed

	r.logger.DebugContext(ctx, "deck renamed",
		slog.String("deck_id", id.String()),
		slog.String("name", newName))
	out := *renamed
	return &out, nil
}

// DeleteDeck implements store.DeckStore.
func (r *Repository) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decks[id]; !ok {
		return store.ErrDeckNotFound
	}
	delete(r.decks, id)

	removed := 0
	for cardID, c := range r.cards {
		if c.DeckID == id {
			r.deleteCardLocked(cardID)
			removed++
		}
	}

	r.logger.DebugContext(ctx, "deck deleted",
		slog.String("deck_id", id.String()),
		slog.Int("cards_removed", removed))
	return nil
}

// CreateCard implements store.CardStore.
func (r *Repository) CreateCard(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.decks[card.DeckID]; !ok {
		return store.ErrDeckNotFound
	}
	if _, ok := r.cards[card.ID]; ok {
		return fmt.Errorf("%w: card %s", store.ErrDuplicate, card.ID)
	}
	r.cards[card.ID] = card.Clone()
	r.cardOrder = append(r.cardOrder, card.ID)

	r.logger.DebugContext(ctx, "card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))
	return nil
}

// GetCard implements store.CardStore.
func (r *Repository) GetCard(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return c.Clone(), nil
}

// ListCards implements store.CardStore.
func (r *Repository) ListCards(_ context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.decks[deckID]; !ok {
		return nil, store.ErrDeckNotFound
	}
	return r.collectLocked(func(c *domain.Card) bool { return c.DeckID == deckID }), nil
}

// ListAllCards implements store.CardStore.
func (r *Repository) ListAllCards(_ context.Context) ([]*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(*domain.Card) bool { return true }), nil
}

// UpdateCard implements store.CardStore.
func (r *Repository) UpdateCard(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	if _, ok := r.decks[card.DeckID]; !ok {
		return store.ErrDeckNotFound
	}
	r.cards[card.ID] = card.Clone()

	r.logger.DebugContext(ctx, "card updated", slog.String("card_id", card.ID.String()))
	return nil
}

// DeleteCard implements store.CardStore.
func (r *Repository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	r.deleteCardLocked(id)

	r.logger.DebugContext(ctx, "card deleted", slog.String("card_id", id.String()))
	return nil
}

// GetSchedule implements store.ReviewStore.
func (r *Repository) GetSchedule(_ context.Context, cardID uuid.UUID) (*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.cards[cardID]; !ok {
		return nil, store.ErrCardNotFound
	}
	if s, ok := r.schedules[cardID]; ok {
		out := *s
		return &out, nil
	}
	return domain.NewSchedule(cardID, time.Now().UTC()), nil
}

// RecordReview implements store.ReviewStore.
func (r *Repository) RecordReview(
	ctx context.Context,
	cardID uuid.UUID,
	grade domain.Grade,
	state domain.CardState,
	next *domain.Schedule,
) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cards[cardID]
	if !ok {
		return store.ErrCardNotFound
	}
	c.State = state
	s := *next
	r.schedules[cardID] = &s

	r.logger.DebugContext(ctx, "review recorded",
		slog.String("card_id", cardID.String()),
		slog.String("grade", string(grade)),
		slog.Time("due_at", next.DueAt))
	return nil
}

// CountDue implements store.ReviewStore.
func (r *Repository) CountDue(_ context.Context, deckID uuid.UUID, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.decks[deckID]; !ok {
		return 0, store.ErrDeckNotFound
	}

	count := 0
	for id, c := range r.cards {
		if c.DeckID != deckID || !c.State.IsActive() {
			continue
		}
		s, ok := r.schedules[id]
		if !ok || s.IsDue(now) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) deckByNameLocked(name string) *domain.Deck {
	for _, d := range r.decks {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (r *Repository) collectLocked(keep func(*domain.Card) bool) []*domain.Card {
	cards := make([]*domain.Card, 0)
	for _, id := range r.cardOrder {
		if c := r.cards[id]; keep(c) {
			cards = append(cards, c.Clone())
		}
	}
	return cards
}

func (r *Repository) deleteCardLocked(id uuid.UUID) {
	delete(r.cards, id)
	delete(r.schedules, id)
	r.cardOrder = slices.DeleteFunc(r.cardOrder, func(other uuid.UUID) bool { return other == id })
}
