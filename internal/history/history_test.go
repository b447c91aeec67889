package history_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQuery(t *testing.T) {
	tests := []struct {
		name  string
		turns []history.Turn
		want  string
	}{
		{
			name: "no history",
			want: "new",
		},
		{
			name: "previous run finished",
			turns: []history.Turn{
				{Query: "old", Result: history.ResultTaskFinished},
			},
			want: "new",
		},
		{
			name: "previous run missing information",
			turns: []history.Turn{
				{Query: "done", Result: history.ResultAnswer},
				{Query: "add a card", Result: history.ResultMissingInformation},
			},
			want: "add a card - new",
		},
		{
			name: "only missing information",
			turns: []history.Turn{
				{Query: "first", Result: history.ResultMissingInformation},
				{Query: "second", Result: history.ResultMissingInformation},
			},
			want: "first - second - new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := history.NewLog()
			for _, turn := range tt.turns {
				log.RecordTurn(turn)
			}
			assert.Equal(t, tt.want, log.PendingQuery("new"))
		})
	}
}

func TestAppendAndRender(t *testing.T) {
	log := history.NewLog()
	assert.True(t, log.IsEmpty())
	assert.Equal(t, "(no actions yet)", log.RenderActions())

	deck, err := domain.NewDeck("Physics")
	require.NoError(t, err)
	log.Append(history.Action{Description: "Created deck Physics", Deck: deck})

	c, err := domain.NewCard(deck.ID, "What is mass?", "kg", "", "")
	require.NoError(t, err)
	log.Append(history.Action{Description: "Added card", Card: c})

	actions := log.Actions()
	require.Len(t, actions, 2)
	assert.False(t, actions[0].At.IsZero())
	assert.Equal(t, "1. Created deck Physics [deck: \"Physics\"]\n2. Added card [card: \"What is mass?\" / \"kg\"]",
		log.RenderActions())
	assert.False(t, log.IsEmpty())
}

func TestReferencedCards(t *testing.T) {
	log := history.NewLog()
	deckID := uuid.New()
	a, _ := domain.NewCard(deckID, "a", "1", "", "")
	b, _ := domain.NewCard(deckID, "b", "2", "", "")

	edited := a.Clone()
	edited.Answer = "one"

	log.Append(history.Action{Description: "add a", Card: a})
	log.Append(history.Action{Description: "add b", Card: b})
	log.Append(history.Action{Description: "edit a", Card: edited})
	log.Append(history.Action{Description: "deck only", Deck: &domain.Deck{ID: deckID, Name: "d"}})

	cards := log.ReferencedCards()
	require.Len(t, cards, 2)
	assert.Equal(t, a.ID, cards[0].ID)
	assert.Equal(t, b.ID, cards[1].ID)
}

func TestRenderQueries(t *testing.T) {
	log := history.NewLog()
	assert.Equal(t, "(no previous queries)", log.RenderQueries())

	log.RecordTurn(history.Turn{Query: "create deck", Result: history.ResultTaskFinished})
	log.RecordTurn(history.Turn{Query: "what is mass", Result: history.ResultAnswer})

	assert.Equal(t, "1. create deck\n2. what is mass", log.RenderQueries())
	assert.Equal(t, []string{"create deck", "what is mass"}, log.Queries())
	assert.Len(t, log.Turns(), 2)
}
