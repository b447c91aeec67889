package srs

import (
	"errors"
	"slices"
	"time"

	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Common errors
var (
	ErrNilSchedule  = errors.New("schedule cannot be nil")
	ErrInvalidGrade = errors.New("invalid review grade")
)

// Scheduler computes the next review schedule of a card.
type Scheduler interface {
	// Next computes the schedule that follows grading a card with the given grade.
	Next(current *domain.Schedule, grade domain.Grade, now time.Time) (*domain.Schedule, error)
}

type defaultScheduler struct {
	params *Params
}

// NewDefaultScheduler creates a Scheduler with default parameters
func NewDefaultScheduler() Scheduler {
	return &defaultScheduler{params: NewDefaultParams()}
}

// NewSchedulerWithParams creates a Scheduler with custom parameters
func NewSchedulerWithParams(params *Params) Scheduler {
	return &defaultScheduler{params: params}
}

// Next implements Scheduler.
func (s *defaultScheduler) Next(
	current *domain.Schedule,
	grade domain.Grade,
	now time.Time,
) (*domain.Schedule, error) {
	if current == nil {
		return nil, ErrNilSchedule
	}

	if !slices.Contains(domain.Grades, grade) {
		return nil, ErrInvalidGrade
	}

	return calculateNextSchedule(current, grade, now, s.params), nil
}
