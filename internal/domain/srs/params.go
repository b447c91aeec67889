package srs

import (
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Params defines all configurable parameters for the scheduling algorithm
type Params struct {
	MinEaseFactor float64
	MaxEaseFactor float64

	// Adjustments for the different grades
	EaseFactorAdjustment map[domain.Grade]float64
	IntervalModifier     map[domain.Grade]float64

	// Intervals used for the first successful review
	FirstReviewIntervals map[domain.Grade]int
	AgainReviewMinutes   int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor: 1.3,
		MaxEaseFactor: 2.5,

		EaseFactorAdjustment: map[domain.Grade]float64{
			domain.GradeAgain: -0.20,
			domain.GradeHard:  -0.15,
			domain.GradeGood:  0.0,
			domain.GradeEasy:  0.15,
		},

		IntervalModifier: map[domain.Grade]float64{
			domain.GradeAgain: 0.0,
			domain.GradeHard:  1.2,
			domain.GradeGood:  1.0,
			domain.GradeEasy:  1.3,
		},

		FirstReviewIntervals: map[domain.Grade]int{
			domain.GradeHard: 1,
			domain.GradeGood: 1,
			domain.GradeEasy: 2,
		},

		AgainReviewMinutes: 10,
	}
}
