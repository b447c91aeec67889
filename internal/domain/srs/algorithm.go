package srs

import (
	"time"

	"github.com/phrazzld/scry-assistant/internal/domain"
)

// calculateNewEaseFactor applies the grade's adjustment and clamps the result
// to the configured range.
func calculateNewEaseFactor(currentEF float64, grade domain.Grade, params *Params) float64 {
	newEF := currentEF + params.EaseFactorAdjustment[grade]

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval determines how many days should pass until the next review.
//
// "Again" resets the interval. The first successful review uses a fixed
// interval, a "good" grade after a lapse grows the interval by half, and
// otherwise the interval is multiplied by the grade's modifier (the ease
// factor for "good", modifier times ease factor for "easy").
func calculateNewInterval(
	currentInterval int,
	consecutiveCorrect int,
	easeFactor float64,
	grade domain.Grade,
	params *Params,
) int {
	if grade == domain.GradeAgain {
		return 0
	}

	if currentInterval == 0 {
		return params.FirstReviewIntervals[grade]
	}

	if consecutiveCorrect == 0 && grade == domain.GradeGood {
		return int(float64(currentInterval) * 1.5)
	}

	var modifier float64
	if grade == domain.GradeGood {
		modifier = easeFactor
	} else {
		modifier = params.IntervalModifier[grade]
		if grade == domain.GradeEasy {
			modifier *= easeFactor
		}
	}

	return int(float64(currentInterval) * modifier)
}

// calculateDueAt converts an interval into the next due time. Failed cards
// come back after a few minutes instead of days.
func calculateDueAt(interval int, grade domain.Grade, now time.Time, params *Params) time.Time {
	if grade == domain.GradeAgain {
		return now.Add(time.Duration(params.AgainReviewMinutes) * time.Minute)
	}
	return now.AddDate(0, 0, interval)
}

// calculateNextSchedule returns a new Schedule; the input is left untouched.
func calculateNextSchedule(
	current *domain.Schedule,
	grade domain.Grade,
	now time.Time,
	params *Params,
) *domain.Schedule {
	next := *current

	next.ReviewCount++
	next.LastReviewedAt = now
	next.EaseFactor = calculateNewEaseFactor(current.EaseFactor, grade, params)

	if grade == domain.GradeAgain {
		next.ConsecutiveCorrect = 0
	} else {
		next.ConsecutiveCorrect++
	}

	next.Interval = calculateNewInterval(
		current.Interval,
		current.ConsecutiveCorrect,
		next.EaseFactor,
		grade,
		params,
	)
	next.DueAt = calculateDueAt(next.Interval, grade, now, params)

	return &next
}
