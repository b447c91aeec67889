package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// CreateDeck implements store.DeckStore.CreateDeck
// Returns store.ErrDeckExists if the name is taken.
func (r *Repository) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := deck.Validate(); err != nil {
		log.Warn("deck validation failed during create",
			redact.Attr(err),
			slog.String("deck_id", deck.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO decks (id, name)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, deck.ID, deck.Name); err != nil {
		if mapped := MapError(err); errors.Is(mapped, store.ErrDeckExists) {
			return fmt.Errorf("%w: %s", store.ErrDeckExists, deck.Name)
		}
		log.Error("failed to create deck",
			redact.Attr(err),
			slog.String("deck_id", deck.ID.String()))
		return store.NewStoreError("deck", "create", "insert failed", MapError(err))
	}

	log.Info("deck created successfully",
		slog.String("deck_id", deck.ID.String()),
		slog.String("name", deck.Name))
	return nil
}

// GetDeck implements store.DeckStore.GetDeck
func (r *Repository) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	query := `SELECT id, name FROM decks WHERE id = $1`
	return r.getDeck(ctx, query, id)
}

// FindDeckByName implements store.DeckStore.FindDeckByName
func (r *Repository) FindDeckByName(ctx context.Context, name string) (*domain.Deck, error) {
	query := `SELECT id, name FROM decks WHERE name = $1`
	return r.getDeck(ctx, query, name)
}

func (r *Repository) getDeck(ctx context.Context, query string, arg any) (*domain.Deck, error) {
	var d domain.Deck
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&d.ID, &d.Name)
	if err != nil {
		if errors.Is(MapError(err), store.ErrNotFound) {
			return nil, store.ErrDeckNotFound
		}
		return nil, store.NewStoreError("deck", "get", "query failed", MapError(err))
	}
	return &d, nil
}

// ListDecks implements store.DeckStore.ListDecks
func (r *Repository) ListDecks(ctx context.Context) ([]*domain.Deck, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM decks ORDER BY name`)
	if err != nil {
		return nil, store.NewStoreError("deck", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	decks := make([]*domain.Deck, 0)
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, store.NewStoreError("deck", "list", "scan failed", err)
		}
		decks = append(decks, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("deck", "list", "iteration failed", err)
	}
	return decks, nil
}

// RenameDeck implements store.DeckStore.RenameDeck
func (r *Repository) RenameDeck(ctx context.Context, id uuid.UUID, newName string) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	renamed := &domain.Deck{ID: id, Name: newName}
	if err := renamed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE decks SET name = $2 WHERE id = $1`, id, newName)
	if err != nil {
		if mapped := MapError(err); errors.Is(mapped, store.ErrDeckExists) {
			return nil, fmt.Errorf("%w: %s", store.ErrDeckExists, newName)
		}
		return nil, store.NewStoreError("deck", "rename", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrDeckNotFound); err != nil {
		return nil, err
	}

	log.Info("deck renamed",
		slog.String("deck_id", id.String()),
		slog.String("name", newName))
	return renamed, nil
}

// DeleteDeck implements store.DeckStore.DeleteDeck
// Cards are removed by the ON DELETE CASCADE constraint.
func (r *Repository) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	result, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("deck", "delete", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrDeckNotFound); err != nil {
		return err
	}

	log.Info("deck deleted", slog.String("deck_id", id.String()))
	return nil
}
