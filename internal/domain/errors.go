// Package domain defines the core business entities and errors.
package domain

import "errors"

var (
	// ErrValidation marks an entity that failed validation. Entity specific
	// errors such as ErrCardQuestionEmpty are reported alongside it.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFlag is returned for flag names outside Flags.
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrInvalidCardState is returned for state names outside CardStates.
	ErrInvalidCardState = errors.New("invalid card state")

	// ErrInvalidGrade is returned for grades outside Grades.
	ErrInvalidGrade = errors.New("invalid review grade")
)
