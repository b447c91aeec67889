package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// GetSchedule implements store.ReviewStore.GetSchedule
func (r *Repository) GetSchedule(ctx context.Context, cardID uuid.UUID) (*domain.Schedule, error) {
	query := `
		SELECT c.id, s.interval_days, s.ease_factor, s.consecutive_correct,
		       s.last_reviewed_at, s.due_at, s.review_count
		FROM cards c
		LEFT JOIN card_schedules s ON s.card_id = c.id
		WHERE c.id = $1
	`
	var (
		id                 uuid.UUID
		interval           sql.NullInt64
		easeFactor         sql.NullFloat64
		consecutiveCorrect sql.NullInt64
		lastReviewedAt     sql.NullTime
		dueAt              sql.NullTime
		reviewCount        sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, cardID).Scan(
		&id, &interval, &easeFactor, &consecutiveCorrect, &lastReviewedAt, &dueAt, &reviewCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		return nil, store.NewStoreError("schedule", "get", "query failed", MapError(err))
	}

	if !dueAt.Valid {
		return domain.NewSchedule(cardID, time.Now().UTC()), nil
	}
	return &domain.Schedule{
		CardID:             id,
		Interval:           int(interval.Int64),
		EaseFactor:         easeFactor.Float64,
		ConsecutiveCorrect: int(consecutiveCorrect.Int64),
		LastReviewedAt:     lastReviewedAt.Time,
		DueAt:              dueAt.Time,
		ReviewCount:        int(reviewCount.Int64),
	}, nil
}

// RecordReview implements store.ReviewStore.RecordReview
// The card state, the schedule and the review log entry are written in one transaction.
func (r *Repository) RecordReview(
	ctx context.Context,
	cardID uuid.UUID,
	grade domain.Grade,
	state domain.CardState,
	next *domain.Schedule,
) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	ctx = logger.WithContext(ctx, log)
	err := store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return writeReview(ctx, tx, cardID, grade, state, next)
	})
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return store.ErrCardNotFound
		}
		return store.NewStoreError("review", "record", "transaction failed", err)
	}

	log.Debug("review recorded",
		slog.String("card_id", cardID.String()),
		slog.String("grade", string(grade)))
	return nil
}

// writeReview applies a graded review through db, usually a transaction.
func writeReview(
	ctx context.Context,
	db store.DBTX,
	cardID uuid.UUID,
	grade domain.Grade,
	state domain.CardState,
	next *domain.Schedule,
) error {
	result, err := db.ExecContext(ctx,
		`UPDATE cards SET state = $2, updated_at = NOW() WHERE id = $1`, cardID, string(state))
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		return err
	}

	upsert := `
		INSERT INTO card_schedules
			(card_id, interval_days, ease_factor, consecutive_correct, last_reviewed_at, due_at, review_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (card_id) DO UPDATE SET
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			consecutive_correct = EXCLUDED.consecutive_correct,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			due_at = EXCLUDED.due_at,
			review_count = EXCLUDED.review_count
	`
	if _, err := db.ExecContext(ctx, upsert,
		cardID, next.Interval, next.EaseFactor, next.ConsecutiveCorrect,
		next.LastReviewedAt, next.DueAt, next.ReviewCount); err != nil {
		return MapError(err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO reviews (card_id, grade) VALUES ($1, $2)`, cardID, string(grade)); err != nil {
		return MapError(err)
	}
	return nil
}

// CountDue implements store.ReviewStore.CountDue
// Cards without a schedule have never been studied and count as due.
func (r *Repository) CountDue(ctx context.Context, deckID uuid.UUID, now time.Time) (int, error) {
	if _, err := r.GetDeck(ctx, deckID); err != nil {
		return 0, err
	}

	query := `
		SELECT COUNT(*)
		FROM cards c
		LEFT JOIN card_schedules s ON s.card_id = c.id
		WHERE c.deck_id = $1
		  AND c.state NOT IN ('suspended', 'buried')
		  AND (s.due_at IS NULL OR s.due_at <= $2)
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, deckID, now).Scan(&count); err != nil {
		return 0, store.NewStoreError("schedule", "count_due", "query failed", MapError(err))
	}
	return count, nil
}
