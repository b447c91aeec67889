// Package domain contains the core flashcard entities (decks, cards and their
// review schedules) together with the enumerations and validation rules that
// every other layer relies on. It has no knowledge of storage, transport or
// the language model.
package domain
