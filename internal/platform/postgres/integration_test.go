package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/platform/postgres"
	"github.com/phrazzld/scry-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepositoryIntegration runs against a real database when
// SCRY_TEST_DATABASE_URL is set. The schema is migrated up and torn down.
func TestRepositoryIntegration(t *testing.T) {
	url := os.Getenv("SCRY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SCRY_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, nil))
	t.Cleanup(func() {
		_ = postgres.RunMigrations(ctx, db, nil, postgres.MigrateDown)
		_ = postgres.RunMigrations(ctx, db, nil, postgres.MigrateDown)
	})

	repo := postgres.NewRepository(db, nil)

	deck, err := domain.NewDeck("Integration " + time.Now().Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NoError(t, repo.CreateDeck(ctx, deck))
	assert.ErrorIs(t, repo.CreateDeck(ctx, &domain.Deck{ID: deck.ID, Name: deck.Name}), store.ErrDuplicate)

	card, err := domain.NewCard(deck.ID, "What is mass?", "kg", "", "")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCard(ctx, card))

	due, err := repo.CountDue(ctx, deck.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, due)

	sched, err := repo.GetSchedule(ctx, card.ID)
	require.NoError(t, err)
	sched.Interval = 3
	sched.DueAt = time.Now().UTC().Add(72 * time.Hour)
	require.NoError(t, repo.RecordReview(ctx, card.ID, domain.GradeGood, domain.CardStateReview, sched))

	due, err = repo.CountDue(ctx, deck.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, due)

	require.NoError(t, repo.DeleteDeck(ctx, deck.ID))
	_, err = repo.GetCard(ctx, card.ID)
	assert.ErrorIs(t, err, store.ErrCardNotFound)
}
