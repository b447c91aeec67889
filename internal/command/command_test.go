package command_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/scry-assistant/internal/command"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/history"
	"github.com/phrazzld/scry-assistant/internal/platform/memory"
	"github.com/phrazzld/scry-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	actions []history.Action
}

func (s *recordingSink) Commit(_ context.Context, a history.Action) {
	s.actions = append(s.actions, a)
}

type fixture struct {
	repo  *memory.Repository
	sink  *recordingSink
	all   *command.Registry
	tasks *command.Registry
	cards *command.Registry
}

func newFixture(t *testing.T, repo store.Repository) *fixture {
	t.Helper()
	mem := memory.NewRepository(quietLogger())
	if repo == nil {
		repo = mem
	}
	sink := &recordingSink{}
	r := command.NewRegistry(sink, quietLogger())
	command.RegisterBuiltins(r, repo)
	return &fixture{
		repo:  mem,
		sink:  sink,
		all:   r,
		tasks: r.Only(command.TaskCommands...),
		cards: r.Only(command.StreamCommands...),
	}
}

func (f *fixture) deck(t *testing.T, name string) *domain.Deck {
	t.Helper()
	d, err := domain.NewDeck(name)
	require.NoError(t, err)
	require.NoError(t, f.repo.CreateDeck(context.Background(), d))
	return d
}

func (f *fixture) card(t *testing.T, deck *domain.Deck, q, a string) *domain.Card {
	t.Helper()
	c, err := domain.NewCard(deck.ID, q, a, "", "")
	require.NoError(t, err)
	require.NoError(t, f.repo.CreateCard(context.Background(), c))
	return c
}

func TestCreateDeck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	effects, err := f.tasks.Execute(ctx, `[{"task": "create_deck", "name": "Physics"}]`)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "Deck 'Physics' created successfully.", effects[0].Message)
	assert.Equal(t, command.CreateDeck, effects[0].Command)

	decks, err := f.repo.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Physics", decks[0].Name)

	require.Len(t, f.sink.actions, 1)
	assert.Equal(t, "Created deck: Physics", f.sink.actions[0].Description)
	assert.Equal(t, decks[0].ID, f.sink.actions[0].Deck.ID)
}

func TestCreateDeckTwiceIsDomainError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deck(t, "Physics")

	_, err := f.tasks.Execute(ctx, `{"task": "create_deck", "name": "Physics"}`)
	var de *command.DomainError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, store.ErrDeckExists)
	assert.Equal(t, command.CreateDeck, de.Command)
	assert.Empty(t, f.sink.actions)
}

func TestAddCardDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	physics := f.deck(t, "Physics")

	_, err := f.tasks.Execute(ctx, `[{"task": "add_card", "deck_name": "Physics",
		"question": "What is the unit of force?", "answer": "Newton", "state": "", "flag": ""}]`)
	require.NoError(t, err)

	cards, err := f.repo.ListCards(ctx, physics.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is the unit of force?", cards[0].Question)
	assert.Equal(t, "Newton", cards[0].Answer)
	assert.Equal(t, domain.FlagNone, cards[0].Flag)
	assert.Equal(t, domain.CardStateNew, cards[0].State)

	require.Len(t, f.sink.actions, 1)
	assert.Equal(t, cards[0].ID, f.sink.actions[0].Card.ID)
}

func TestAddCardWithFlagAndState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	physics := f.deck(t, "Physics")

	_, err := f.tasks.Execute(ctx, `{"task": "add_card", "deck_name": "Physics",
		"question": "q", "answer": "a", "state": "Review", "flag": "purple"}`)
	require.NoError(t, err)

	cards, err := f.repo.ListCards(ctx, physics.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, domain.FlagPurple, cards[0].Flag)
	assert.Equal(t, domain.CardStateReview, cards[0].State)
}

func TestMalformedPayloadsNeverTouchRepository(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		is    error
	}{
		{name: "not json", reply: `create the deck please`, is: command.ErrMalformed},
		{name: "empty", reply: `   `, is: command.ErrMalformed},
		{name: "scalar", reply: `"create_deck"`, is: command.ErrMalformed},
		{name: "list of strings", reply: `["create_deck"]`, is: command.ErrNotAnObject},
		{name: "missing task", reply: `{"name": "Physics"}`, is: command.ErrKeySet},
		{name: "task not a string", reply: `{"task": 1, "name": "Physics"}`, is: command.ErrFieldType},
		{name: "unknown command", reply: `{"task": "drop_database"}`, is: command.ErrUnknownCommand},
		{name: "command of another state", reply: `{"task": "delete_card", "card": 1}`, is: command.ErrUnknownCommand},
		{name: "missing key", reply: `{"task": "rename_deck", "old_name": "A"}`, is: command.ErrKeySet},
		{name: "extra key", reply: `{"task": "create_deck", "name": "A", "color": "red"}`, is: command.ErrKeySet},
		{name: "wrong type", reply: `{"task": "create_deck", "name": 42}`, is: command.ErrFieldType},
		{name: "invalid flag", reply: `{"task": "add_card", "deck_name": "A", "question": "q", "answer": "a", "flag": "black"}`, is: command.ErrFieldValue},
		{name: "invalid state", reply: `{"task": "add_card", "deck_name": "A", "question": "q", "answer": "a", "state": "done"}`, is: command.ErrFieldValue},
		{
			name:  "second command invalid",
			reply: `[{"task": "create_deck", "name": "A"}, {"task": "create_deck", "nme": "B"}]`,
			is:    command.ErrKeySet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, nil)

			effects, err := f.tasks.Execute(ctx, tt.reply)
			require.Error(t, err)
			assert.Nil(t, effects)

			var ve *command.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, tt.is)

			decks, listErr := f.repo.ListDecks(ctx)
			require.NoError(t, listErr)
			assert.Empty(t, decks)
			assert.Empty(t, f.sink.actions)

			assert.Contains(t, command.CorrectiveMessage(err), "None of your commands were executed")
		})
	}
}

func TestUnknownDeckSuggestsNearMisses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deck(t, "Physics")
	f.deck(t, "Physic")
	f.deck(t, "Zoology")

	_, err := f.tasks.Execute(ctx, `{"task": "add_card", "deck_name": "Fysics", "question": "q", "answer": "a"}`)
	var de *command.DomainError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)
	assert.Equal(t, []string{"Physics", "Physic"}, de.Suggestions)

	msg := command.CorrectiveMessage(err)
	assert.Contains(t, msg, "* Physics")
	assert.Contains(t, msg, "audio-to-text error")
	assert.NotContains(t, msg, "Zoology")
}

func TestPartialSuccessIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	effects, err := f.tasks.Execute(ctx, `[
		{"task": "create_deck", "name": "Astronomy"},
		{"task": "add_card", "deck_name": "Astronomie", "question": "Largest planet?", "answer": "Jupiter"}
	]`)
	require.Len(t, effects, 1)

	var de *command.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, command.AddCard, de.Command)
	require.Len(t, de.Executed, 1)
	assert.Contains(t, de.Executed[0], command.CreateDeck)
	assert.Equal(t, []string{"Astronomy"}, de.Suggestions)

	_, findErr := f.repo.FindDeckByName(ctx, "Astronomy")
	require.NoError(t, findErr)
	assert.Len(t, f.sink.actions, 1)
	assert.Contains(t, command.CorrectiveMessage(err), "Do not send them again")
}

func TestMissingInformationStopsExecution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	effects, err := f.tasks.Execute(ctx, `[
		{"task": "add_card", "deck_name": "", "question": "q", "answer": "a"},
		{"task": "create_deck", "name": "Never"}
	]`)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, command.SignalMissingInformation, effects[0].Signal)

	_, findErr := f.repo.FindDeckByName(ctx, "Never")
	assert.ErrorIs(t, findErr, store.ErrDeckNotFound)

	effects, err = f.tasks.Execute(ctx, `{"task": "missing_information", "message": "Which deck?"}`)
	require.NoError(t, err)
	assert.Equal(t, "Which deck?", effects[0].Message)
}

func TestRenameAndDeleteDeck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.deck(t, "Physics")
	f.deck(t, "Chemistry")

	_, err := f.tasks.Execute(ctx, `{"task": "rename_deck", "old_name": "Physics", "new_name": "Chemistry"}`)
	assert.ErrorIs(t, err, store.ErrDeckExists)

	effects, err := f.tasks.Execute(ctx, `[{"task": "rename_deck", "old_name": "Physics", "new_name": "Mechanics"},
		{"task": "delete_deck", "name": "Chemistry"}]`)
	require.NoError(t, err)
	require.Len(t, effects, 2)

	decks, err := f.repo.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "Mechanics", decks[0].Name)

	require.Len(t, f.sink.actions, 2)
	assert.Equal(t, "Renamed deck from Physics to Mechanics", f.sink.actions[0].Description)
	assert.Equal(t, "Deleted deck: Chemistry", f.sink.actions[1].Description)
}

type failingRepo struct {
	store.Repository
}

func (failingRepo) FindDeckByName(context.Context, string) (*domain.Deck, error) {
	return nil, errors.New("connection refused")
}

func TestRepositoryFailureIsResourceError(t *testing.T) {
	mem := memory.NewRepository(quietLogger())
	f := newFixture(t, failingRepo{Repository: mem})

	_, err := f.tasks.Execute(context.Background(), `{"task": "create_deck", "name": "Physics"}`)
	var re *command.ResourceError
	require.ErrorAs(t, err, &re)
	assert.True(t, command.IsResourceError(err))
	assert.Equal(t, command.CreateDeck, re.Command)
}

func TestStreamCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	physics := f.deck(t, "Physics")
	mass := f.card(t, physics, "What is mass?", "Amount of matter")
	weight := f.card(t, physics, "What is weight?", "Force of gravity")

	scoped := command.WithScope(ctx, []*domain.Card{mass, weight})

	effects, err := f.cards.Execute(scoped, `[
		{"task": "edit_card", "card": 1, "question": "What is Mass?", "flag": "red"},
		{"task": "delete_card", "card": 2}
	]`)
	require.NoError(t, err)
	require.Len(t, effects, 2)

	edited, err := f.repo.GetCard(ctx, mass.ID)
	require.NoError(t, err)
	assert.Equal(t, "What is Mass?", edited.Question)
	assert.Equal(t, domain.FlagRed, edited.Flag)
	assert.Equal(t, "Amount of matter", edited.Answer)

	_, err = f.repo.GetCard(ctx, weight.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)

	require.Len(t, f.sink.actions, 3)
	assert.Equal(t, "Edited card question from What is mass? to What is Mass?", f.sink.actions[0].Description)
	assert.Equal(t, "Deleted card What is weight?", f.sink.actions[2].Description)
}

func TestStreamCommandValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	physics := f.deck(t, "Physics")
	mass := f.card(t, physics, "What is mass?", "Amount of matter")
	scoped := command.WithScope(ctx, []*domain.Card{mass})

	_, err := f.cards.Execute(scoped, `{"task": "delete_card", "card": 2}`)
	assert.ErrorIs(t, err, command.ErrFieldValue)

	_, err = f.cards.Execute(ctx, `{"task": "delete_card", "card": 1}`)
	assert.ErrorIs(t, err, command.ErrFieldValue)

	_, err = f.cards.Execute(scoped, `{"task": "delete_card", "card": "1"}`)
	assert.ErrorIs(t, err, command.ErrFieldType)

	_, err = f.cards.Execute(scoped, `[{"task": "abort_stream", "reason": "x"}, {"task": "delete_card", "card": 1}]`)
	assert.ErrorIs(t, err, command.ErrExclusive)

	_, err = f.cards.Execute(scoped, `{"task": "create_deck", "name": "x"}`)
	assert.ErrorIs(t, err, command.ErrUnknownCommand)

	_, getErr := f.repo.GetCard(ctx, mass.ID)
	require.NoError(t, getErr)

	effects, err := f.cards.Execute(scoped, `{"task": "abort_stream", "reason": "wrong cards"}`)
	require.NoError(t, err)
	assert.Equal(t, command.SignalAbort, effects[0].Signal)
	assert.Equal(t, "Stream aborted: wrong cards", effects[0].Message)
}

func TestEditCardWithoutChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	physics := f.deck(t, "Physics")
	mass := f.card(t, physics, "What is mass?", "Amount of matter")

	effects, err := f.cards.Execute(command.WithScope(ctx, []*domain.Card{mass}),
		`{"task": "edit_card", "card": 1, "question": "What is mass?"}`)
	require.NoError(t, err)
	assert.Empty(t, effects[0].Actions)
	assert.Empty(t, f.sink.actions)
}

func TestDescribeListsAllowedCommands(t *testing.T) {
	f := newFixture(t, nil)

	desc := f.tasks.Describe()
	for _, name := range command.TaskCommands {
		assert.Contains(t, desc, "* "+name+": ")
	}
	assert.NotContains(t, desc, command.EditCard)
	assert.Equal(t, command.StreamCommands, f.cards.Names())
}

func TestRegistryPanicsOnMisuse(t *testing.T) {
	f := newFixture(t, nil)

	assert.Panics(t, func() { f.all.Only("no_such_command") })
	assert.Panics(t, func() {
		command.Register(f.all, command.Definition[command.CreateDeckPayload]{
			Name:   command.CreateDeck,
			Handle: func(context.Context, command.CreateDeckPayload) (command.Effect, error) { return command.Effect{}, nil },
		})
	})
	assert.Panics(t, func() { command.NewRegistry(nil, nil) })
}
