package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-assistant/internal/platform/postgres"
	"github.com/phrazzld/scry-assistant/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "violation",
		TableName:      "cards",
		ColumnName:     "question",
		ConstraintName: constraint,
	}
}

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("connection reset")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantRaw bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "deck name taken", err: newPgError("23505", "decks_name_key"), wantIs: store.ErrDeckExists},
		{name: "other unique", err: newPgError("23505", "cards_pkey"), wantIs: store.ErrDuplicate},
		{name: "unknown deck", err: newPgError("23503", "cards_deck_id_fkey"), wantIs: store.ErrDeckNotFound},
		{name: "unknown card", err: newPgError("23503", "reviews_card_id_fkey"), wantIs: store.ErrCardNotFound},
		{name: "check", err: newPgError("23514", "cards_flag_check"), wantIs: store.ErrInvalidEntity},
		{name: "not null", err: newPgError("23502", ""), wantIs: store.ErrInvalidEntity},
		{name: "wrapped", err: fmt.Errorf("exec: %w", newPgError("23505", "decks_name_key")), wantIs: store.ErrDuplicate},
		{name: "other sqlstate", err: newPgError("40001", ""), wantRaw: true},
		{name: "unmapped", err: plain, wantRaw: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := postgres.MapError(tt.err)
			switch {
			case tt.err == nil:
				assert.NoError(t, got)
			case tt.wantRaw:
				assert.Same(t, tt.err, got)
			default:
				assert.ErrorIs(t, got, tt.wantIs)
				var pgErr *pgconn.PgError
				if !errors.Is(tt.err, sql.ErrNoRows) {
					assert.ErrorAs(t, got, &pgErr)
				}
			}
		})
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(mockResult{rowsAffected: 1}, store.ErrCardNotFound))
	assert.ErrorIs(t, postgres.CheckRowsAffected(mockResult{}, store.ErrCardNotFound), store.ErrCardNotFound)
	assert.Error(t, postgres.CheckRowsAffected(mockResult{err: errors.New("x")}, store.ErrCardNotFound))
	assert.Error(t, postgres.CheckRowsAffected(nil, store.ErrCardNotFound))
}
