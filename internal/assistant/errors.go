package assistant

import (
	"context"
	"errors"
	"fmt"
)

// Engine errors
var (
	// ErrAttemptsExhausted is matched by every *ExhaustedError.
	ErrAttemptsExhausted = errors.New("exceeded max attempts")

	// ErrErrorBudgetExceeded is returned when a run saw more model or
	// repository failures than its error budget allows.
	ErrErrorBudgetExceeded = errors.New("error budget exceeded")

	// ErrUnknownState is returned when a state names a successor that is
	// not registered.
	ErrUnknownState = errors.New("unknown state")

	// ErrIllegalTransition is returned when a state moves to a successor
	// the transition table does not allow.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrMissingDependency is returned by NewEngine when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("missing engine dependency")
)

// ExhaustedError is the bounded-retry failure: a state did not get a usable
// reply within its attempt cap.
type ExhaustedError struct {
	State    StateID
	Attempts int
	// Feedback is the last corrective message that was sent.
	Feedback string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v in state %s (%d attempts)", ErrAttemptsExhausted, e.State, e.Attempts)
}

// Is makes errors.Is(err, ErrAttemptsExhausted) match.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAttemptsExhausted
}

// failureMessage is the user-facing message of a run that ended with err.
func failureMessage(err error) string {
	var exhausted *ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		return fmt.Sprintf("Sorry, I could not complete your request: exceeded max attempts in state %s.", exhausted.State)
	case errors.Is(err, ErrErrorBudgetExceeded):
		return "Sorry, the assistant is currently unavailable. Please try again later."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled."
	default:
		return "Sorry, something went wrong while processing your request."
	}
}
