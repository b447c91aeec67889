package store

import (
	"errors"
	"fmt"
)

// Base errors shared by every repository implementation. Callers test for
// them with errors.Is; the entity specific errors below wrap them.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")
)

// Entity errors
var (
	ErrDeckNotFound = fmt.Errorf("%w: deck", ErrNotFound)
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)
	// ErrDeckExists is returned when a deck name is already taken. Deck
	// names are unique across the repository.
	ErrDeckExists = fmt.Errorf("%w: deck name", ErrDuplicate)
)

// IsNotFoundError reports whether err is a missing deck, card or other entity.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a uniqueness conflict.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsDomainError reports whether err describes a problem with the request
// itself (missing or duplicate entity, invalid data) rather than a failure of
// the storage backend.
func IsDomainError(err error) bool {
	return IsNotFoundError(err) || IsDuplicateError(err) || errors.Is(err, ErrInvalidEntity)
}

// StoreError describes a failed backend operation on an entity.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Entity, e.Operation, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError, for example
// NewStoreError("deck", "rename", "update failed", err).
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
