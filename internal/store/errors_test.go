package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("some error"), expected: false},
		{name: "ErrNotFound", err: ErrNotFound, expected: true},
		{name: "wrapped ErrNotFound", err: fmt.Errorf("failed: %w", ErrNotFound), expected: true},
		{name: "ErrDeckNotFound", err: ErrDeckNotFound, expected: true},
		{name: "wrapped ErrCardNotFound", err: fmt.Errorf("lookup: %w", ErrCardNotFound), expected: true},
		{name: "ErrDeckExists", err: ErrDeckExists, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(ErrDeckExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", ErrDuplicate)))
	assert.False(t, IsDuplicateError(ErrDeckNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrDeckNotFound))
	assert.True(t, IsDomainError(ErrDeckExists))
	assert.True(t, IsDomainError(fmt.Errorf("%w: empty question", ErrInvalidEntity)))
	assert.False(t, IsDomainError(errors.New("connection refused")))
	assert.False(t, IsDomainError(ErrTransactionFailed))
}

func TestStoreError(t *testing.T) {
	inner := ErrDeckNotFound
	err := NewStoreError("deck", "rename", "deck missing", inner)

	assert.Equal(t, "deck rename: deck missing: entity not found: deck", err.Error())
	assert.ErrorIs(t, err, ErrDeckNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	bare := NewStoreError("card", "delete", "nothing to delete", nil)
	assert.Equal(t, "card delete: nothing to delete", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
