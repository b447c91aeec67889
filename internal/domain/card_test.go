package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()

	card, err := NewCard(deckID, "What is Go?", "A programming language", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, deckID, card.DeckID)
	assert.Equal(t, FlagNone, card.Flag)
	assert.Equal(t, CardStateNew, card.State)

	_, err = NewCard(uuid.Nil, "q", "a", FlagRed, CardStateNew)
	assert.ErrorIs(t, err, ErrCardDeckIDEmpty)

	_, err = NewCard(deckID, "  ", "a", FlagRed, CardStateNew)
	assert.ErrorIs(t, err, ErrCardQuestionEmpty)

	_, err = NewCard(deckID, "q", "", FlagRed, CardStateNew)
	assert.ErrorIs(t, err, ErrCardAnswerEmpty)

	_, err = NewCard(deckID, "q", "a", Flag("gold"), CardStateNew)
	assert.ErrorIs(t, err, ErrInvalidFlag)

	_, err = NewCard(deckID, "q", "a", FlagRed, CardState("lost"))
	assert.ErrorIs(t, err, ErrInvalidCardState)
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Flag
		wantErr bool
	}{
		{input: "red", want: FlagRed},
		{input: "Purple", want: FlagPurple},
		{input: " TURQUOISE ", want: FlagTurquoise},
		{input: "none", want: FlagNone},
		{input: "yellow", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFlag(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFlag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCardState(t *testing.T) {
	t.Parallel()

	for _, state := range CardStates {
		got, err := ParseCardState(string(state))
		require.NoError(t, err)
		assert.Equal(t, state, got)
	}

	got, err := ParseCardState("SUSPENDED")
	require.NoError(t, err)
	assert.Equal(t, CardStateSuspended, got)

	_, err = ParseCardState("archived")
	assert.ErrorIs(t, err, ErrInvalidCardState)
}

func TestCardClone(t *testing.T) {
	t.Parallel()

	card, err := NewCard(uuid.New(), "q", "a", FlagBlue, CardStateReview)
	require.NoError(t, err)

	clone := card.Clone()
	clone.Question = "changed"
	assert.Equal(t, "q", card.Question)
	assert.Equal(t, card.ID, clone.ID)
}

func TestStateAfter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CardStateLearning, StateAfter(CardStateNew, GradeAgain))
	assert.Equal(t, CardStateReview, StateAfter(CardStateLearning, GradeGood))
	assert.Equal(t, CardStateSuspended, StateAfter(CardStateSuspended, GradeEasy))
}

func TestParseGrade(t *testing.T) {
	t.Parallel()

	g, err := ParseGrade(" Easy ")
	require.NoError(t, err)
	assert.Equal(t, GradeEasy, g)

	_, err = ParseGrade("excellent")
	assert.ErrorIs(t, err, ErrInvalidGrade)
}
