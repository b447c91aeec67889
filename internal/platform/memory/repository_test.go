package memory_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/platform/memory"
	"github.com/phrazzld/scry-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo() *memory.Repository {
	return memory.NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustDeck(t *testing.T, r *memory.Repository, name string) *domain.Deck {
	t.Helper()
	d, err := domain.NewDeck(name)
	require.NoError(t, err)
	require.NoError(t, r.CreateDeck(context.Background(), d))
	return d
}

func mustCard(t *testing.T, r *memory.Repository, deckID uuid.UUID, q, a string) *domain.Card {
	t.Helper()
	c, err := domain.NewCard(deckID, q, a, "", "")
	require.NoError(t, err)
	require.NoError(t, r.CreateCard(context.Background(), c))
	return c
}

func TestDeckLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRepo()

	physics := mustDeck(t, r, "Physics")
	mustDeck(t, r, "Biology")

	dup, _ := domain.NewDeck("Physics")
	assert.ErrorIs(t, r.CreateDeck(ctx, dup), store.ErrDeckExists)

	found, err := r.FindDeckByName(ctx, "Physics")
	require.NoError(t, err)
	assert.Equal(t, physics.ID, found.ID)

	_, err = r.FindDeckByName(ctx, "physics")
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	decks, err := r.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "Biology", decks[0].Name)

	_, err = r.RenameDeck(ctx, physics.ID, "Biology")
	assert.ErrorIs(t, err, store.ErrDeckExists)

	renamed, err := r.RenameDeck(ctx, physics.ID, "Mechanics")
	require.NoError(t, err)
	assert.Equal(t, "Mechanics", renamed.Name)

	_, err = r.RenameDeck(ctx, uuid.New(), "X")
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	require.NoError(t, r.DeleteDeck(ctx, physics.ID))
	_, err = r.GetDeck(ctx, physics.ID)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)
	assert.ErrorIs(t, r.DeleteDeck(ctx, physics.ID), store.ErrDeckNotFound)
}

func TestCardLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	deck := mustDeck(t, r, "Physics")

	orphan, _ := domain.NewCard(uuid.New(), "q", "a", "", "")
	assert.ErrorIs(t, r.CreateCard(ctx, orphan), store.ErrDeckNotFound)

	first := mustCard(t, r, deck.ID, "What is mass?", "kg")
	second := mustCard(t, r, deck.ID, "What is force?", "N")

	cards, err := r.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, first.ID, cards[0].ID)

	// Returned cards are copies.
	cards[0].Question = "mutated"
	got, err := r.GetCard(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "What is mass?", got.Question)

	got.Flag = domain.FlagRed
	require.NoError(t, r.UpdateCard(ctx, got))
	got, err = r.GetCard(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FlagRed, got.Flag)

	invalid := got.Clone()
	invalid.Question = ""
	assert.ErrorIs(t, r.UpdateCard(ctx, invalid), store.ErrInvalidEntity)

	require.NoError(t, r.DeleteCard(ctx, second.ID))
	assert.ErrorIs(t, r.DeleteCard(ctx, second.ID), store.ErrCardNotFound)

	all, err := r.ListAllCards(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, r.DeleteDeck(ctx, deck.ID))
	all, err = r.ListAllCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReviews(t *testing.T) {
	ctx := context.Background()
	r := newRepo()
	deck := mustDeck(t, r, "Physics")
	a := mustCard(t, r, deck.ID, "a", "1")
	mustCard(t, r, deck.ID, "b", "2")

	now := time.Now().UTC()
	due, err := r.CountDue(ctx, deck.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, due)

	sched, err := r.GetSchedule(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEaseFactor, sched.EaseFactor)

	next := *sched
	next.Interval = 1
	next.DueAt = now.Add(24 * time.Hour)
	require.NoError(t, r.RecordReview(ctx, a.ID, domain.GradeGood, domain.CardStateReview, &next))

	due, err = r.CountDue(ctx, deck.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, due)

	got, err := r.GetCard(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateReview, got.State)

	assert.ErrorIs(t, r.RecordReview(ctx, uuid.New(), domain.GradeGood, domain.CardStateReview, &next),
		store.ErrCardNotFound)
}

func TestLoadSeedFrom(t *testing.T) {
	ctx := context.Background()
	r := newRepo()

	doc := `
decks:
  - name: Physics
    cards:
      - question: What is mass?
        answer: Amount of matter
        flag: Red
      - question: What is force?
        answer: Mass times acceleration
        state: review
  - name: Empty
`
	require.NoError(t, r.LoadSeedFrom(ctx, strings.NewReader(doc)))

	deck, err := r.FindDeckByName(ctx, "Physics")
	require.NoError(t, err)
	cards, err := r.ListCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, domain.FlagRed, cards[0].Flag)
	assert.Equal(t, domain.CardStateNew, cards[0].State)
	assert.Equal(t, domain.CardStateReview, cards[1].State)

	_, err = r.FindDeckByName(ctx, "Empty")
	assert.NoError(t, err)
}

func TestLoadSeedRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "decks:\n  - name: A\n    colour: red\n"},
		{name: "bad flag", doc: "decks:\n  - name: A\n    cards:\n      - question: q\n        answer: a\n        flag: black\n"},
		{name: "duplicate deck", doc: "decks:\n  - name: A\n  - name: A\n"},
		{name: "missing answer", doc: "decks:\n  - name: A\n    cards:\n      - question: q\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newRepo().LoadSeedFrom(context.Background(), strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
