package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  int
		consec   int
		ef       float64
		grade    domain.Grade
		expected int
	}{
		{name: "again resets interval", current: 10, consec: 2, ef: 2.5, grade: domain.GradeAgain, expected: 0},
		{name: "hard on first review", current: 0, consec: 0, ef: 2.5, grade: domain.GradeHard, expected: 1},
		{name: "good on first review", current: 0, consec: 0, ef: 2.5, grade: domain.GradeGood, expected: 1},
		{name: "easy on first review", current: 0, consec: 0, ef: 2.5, grade: domain.GradeEasy, expected: 2},
		{name: "hard grows slightly", current: 10, consec: 2, ef: 2.5, grade: domain.GradeHard, expected: 12},
		{name: "good uses ease factor", current: 10, consec: 2, ef: 2.5, grade: domain.GradeGood, expected: 25},
		{name: "easy uses modifier and ease factor", current: 10, consec: 2, ef: 2.0, grade: domain.GradeEasy, expected: 26},
		{name: "good after lapse", current: 10, consec: 0, ef: 2.5, grade: domain.GradeGood, expected: 15},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewInterval(tc.current, tc.consec, tc.ef, tc.grade, params)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCalculateNewEaseFactorIsClamped(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	assert.InDelta(t, params.MinEaseFactor, calculateNewEaseFactor(1.35, domain.GradeAgain, params), 0.0001)
	assert.InDelta(t, params.MaxEaseFactor, calculateNewEaseFactor(2.45, domain.GradeEasy, params), 0.0001)
	assert.InDelta(t, 2.35, calculateNewEaseFactor(2.5, domain.GradeHard, params), 0.0001)
}

func TestSchedulerNext(t *testing.T) {
	t.Parallel()
	scheduler := NewDefaultScheduler()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := domain.NewSchedule(uuid.New(), now)

	t.Run("good schedules a day later", func(t *testing.T) {
		next, err := scheduler.Next(current, domain.GradeGood, now)
		require.NoError(t, err)
		assert.Equal(t, 1, next.Interval)
		assert.Equal(t, 1, next.ReviewCount)
		assert.Equal(t, 1, next.ConsecutiveCorrect)
		assert.Equal(t, now.AddDate(0, 0, 1), next.DueAt)
		assert.Equal(t, 0, current.ReviewCount, "input must not be modified")
	})

	t.Run("again schedules minutes later", func(t *testing.T) {
		next, err := scheduler.Next(current, domain.GradeAgain, now)
		require.NoError(t, err)
		assert.Equal(t, 0, next.Interval)
		assert.Equal(t, now.Add(10*time.Minute), next.DueAt)
	})

	t.Run("nil schedule", func(t *testing.T) {
		_, err := scheduler.Next(nil, domain.GradeGood, now)
		assert.ErrorIs(t, err, ErrNilSchedule)
	})

	t.Run("invalid grade", func(t *testing.T) {
		_, err := scheduler.Next(current, domain.Grade("perfect"), now)
		assert.ErrorIs(t, err, ErrInvalidGrade)
	})
}
