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

const cardColumns = `id, deck_id, question, answer, flag, state`

func scanCard(row scanner) (*domain.Card, error) {
	var c domain.Card
	var flag, state string
	if err := row.Scan(&c.ID, &c.DeckID, &c.Question, &c.Answer, &flag, &state); err != nil {
		return nil, err
	}
	c.Flag = domain.Flag(flag)
	c.State = domain.CardState(state)
	return &c, nil
}

// CreateCard implements store.CardStore.CreateCard
// Returns store.ErrDeckNotFound if the deck does not exist (foreign key violation).
func (r *Repository) CreateCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			redact.Attr(err),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO cards (id, deck_id, question, answer, flag, state)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.DeckID, card.Question, card.Answer, string(card.Flag), string(card.State))
	if err != nil {
		if mapped := MapError(err); errors.Is(mapped, store.ErrDeckNotFound) {
			log.Warn("foreign key violation during card creation",
				slog.String("card_id", card.ID.String()),
				slog.String("deck_id", card.DeckID.String()))
			return store.ErrDeckNotFound
		}
		log.Error("failed to create card",
			redact.Attr(err),
			slog.String("card_id", card.ID.String()))
		return store.NewStoreError("card", "create", "insert failed", MapError(err))
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))
	return nil
}

// GetCard implements store.CardStore.GetCard
func (r *Repository) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	c, err := scanCard(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(MapError(err), store.ErrNotFound) {
			return nil, store.ErrCardNotFound
		}
		return nil, store.NewStoreError("card", "get", "query failed", MapError(err))
	}
	return c, nil
}

// ListCards implements store.CardStore.ListCards
func (r *Repository) ListCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	if _, err := r.GetDeck(ctx, deckID); err != nil {
		return nil, err
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE deck_id = $1 ORDER BY position`
	return r.queryCards(ctx, query, deckID)
}

// ListAllCards implements store.CardStore.ListAllCards
func (r *Repository) ListAllCards(ctx context.Context) ([]*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards ORDER BY position`
	return r.queryCards(ctx, query)
}

func (r *Repository) queryCards(ctx context.Context, query string, args ...any) ([]*domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("card", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", "list", "scan failed", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "iteration failed", err)
	}
	return cards, nil
}

// UpdateCard implements store.CardStore.UpdateCard
func (r *Repository) UpdateCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE cards
		SET deck_id = $2, question = $3, answer = $4, flag = $5, state = $6, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		card.ID, card.DeckID, card.Question, card.Answer, string(card.Flag), string(card.State))
	if err != nil {
		if mapped := MapError(err); errors.Is(mapped, store.ErrDeckNotFound) {
			return store.ErrDeckNotFound
		}
		return store.NewStoreError("card", "update", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("card updated", slog.String("card_id", card.ID.String()))
	return nil
}

// DeleteCard implements store.CardStore.DeleteCard
func (r *Repository) DeleteCard(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	result, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return store.NewStoreError("card", "delete", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("card deleted", slog.String("card_id", id.String()))
	return nil
}
