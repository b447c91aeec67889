package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Grade is the outcome of a single study review.
type Grade string

// Possible review grades
const (
	GradeAgain Grade = "again"
	GradeHard  Grade = "hard"
	GradeGood  Grade = "good"
	GradeEasy  Grade = "easy"
)

// Grades lists every grade from worst to best.
var Grades = []Grade{GradeAgain, GradeHard, GradeGood, GradeEasy}

// ParseGrade converts a grade name to a Grade, ignoring case and surrounding whitespace.
func ParseGrade(s string) (Grade, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, g := range Grades {
		if string(g) == name {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGrade, s)
}

// Common validation errors for Schedule
var (
	ErrEmptyScheduleCardID = errors.New("schedule card ID cannot be empty")
	ErrInvalidInterval     = errors.New("interval must be greater than or equal to 0")
	ErrInvalidEaseFactor   = errors.New("ease factor must be greater than 1.0")
)

// DefaultEaseFactor is the ease factor of a card that has never been reviewed.
const DefaultEaseFactor = 2.5

// Schedule tracks the spaced repetition statistics of a single card.
type Schedule struct {
	CardID             uuid.UUID `json:"card_id"`
	Interval           int       `json:"interval"`            // Current interval in days
	EaseFactor         float64   `json:"ease_factor"`         // Ease factor (1.3-2.5 typically)
	ConsecutiveCorrect int       `json:"consecutive_correct"` // Count of consecutive non-"again" grades
	LastReviewedAt     time.Time `json:"last_reviewed_at"`
	DueAt              time.Time `json:"due_at"`
	ReviewCount        int       `json:"review_count"`
}

// NewSchedule creates the schedule of a card that is due immediately.
func NewSchedule(cardID uuid.UUID, now time.Time) *Schedule {
	return &Schedule{
		CardID:     cardID,
		EaseFactor: DefaultEaseFactor,
		DueAt:      now,
	}
}

// Validate checks if the Schedule has valid data.
func (s *Schedule) Validate() error {
	if s.CardID == uuid.Nil {
		return ErrEmptyScheduleCardID
	}

	if s.Interval < 0 {
		return ErrInvalidInterval
	}

	if s.EaseFactor <= 1.0 {
		return ErrInvalidEaseFactor
	}

	return nil
}

// IsDue reports whether the card should be studied at the given time.
func (s *Schedule) IsDue(now time.Time) bool {
	return !s.DueAt.After(now)
}

// StateAfter returns the card state a card ends up in after being graded.
// Suspended and buried cards keep their state.
func StateAfter(current CardState, grade Grade) CardState {
	if !current.IsActive() {
		return current
	}
	if grade == GradeAgain {
		return CardStateLearning
	}
	return CardStateReview
}
