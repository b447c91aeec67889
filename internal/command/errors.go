package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/domain"
	"github.com/phrazzld/scry-assistant/internal/store"
)

// Sentinel errors wrapped by ValidationError.
var (
	ErrMalformed      = errors.New("answer is not valid JSON")
	ErrNotAnObject    = errors.New("command must be a JSON object")
	ErrUnknownCommand = errors.New("unknown command")
	ErrKeySet         = errors.New("wrong keys")
	ErrFieldType      = errors.New("wrong field type")
	ErrFieldValue     = errors.New("invalid field value")
	ErrExclusive      = errors.New("command must be sent alone")
)

// ValidationError reports a protocol violation. No command of the payload
// was executed.
type ValidationError struct {
	// Index is the zero-based position of the offending command, or -1 when
	// the payload as a whole is unusable.
	Index int
	// Command is the offending command's name, if it could be read.
	Command string
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Index < 0:
		return e.Err.Error()
	case e.Command == "":
		return fmt.Sprintf("command %d: %v", e.Index+1, e.Err)
	default:
		return fmt.Sprintf("command %d (%s): %v", e.Index+1, e.Command, e.Err)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(index int, name string, err error) *ValidationError {
	return &ValidationError{Index: index, Command: name, Err: err}
}

// DomainError reports a command the repository refused, such as a reference
// to a deck that does not exist or a duplicate deck name.
type DomainError struct {
	Command string
	Err     error
	// Suggestions are existing names close to the one the model used.
	Suggestions []string
	// Executed lists the commands of the same payload that ran successfully
	// before this one failed. Their effects are committed.
	Executed []string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ResourceError reports a repository failure unrelated to the command's
// content. It is not corrected by asking the model again.
type ResourceError struct {
	Command string
	Err     error
	// Executed lists the commands that ran before the failure.
	Executed []string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: repository failure: %v", e.Command, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// IsResourceError reports whether err is, or wraps, a ResourceError.
func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

// isDomainFailure reports whether err is a content problem the model can fix.
func isDomainFailure(err error) bool {
	return store.IsDomainError(err) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidFlag) ||
		errors.Is(err, domain.ErrInvalidCardState) ||
		errors.Is(err, domain.ErrDeckNameEmpty) ||
		errors.Is(err, domain.ErrCardQuestionEmpty) ||
		errors.Is(err, domain.ErrCardAnswerEmpty)
}

// CorrectiveMessage renders a validation or domain error as the next message
// for the model. Other errors are rendered generically.
func CorrectiveMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if errors.Is(ve, ErrMalformed) {
			return fmt.Sprintf("Your answer must be valid JSON. Error: %v. "+
				"None of your commands were executed. Please try again.", ve)
		}
		return fmt.Sprintf("Your answer could not be used: %v. "+
			"None of your commands were executed. Please try again.", ve)
	}

	var de *DomainError
	if errors.As(err, &de) {
		var b strings.Builder
		fmt.Fprintf(&b, "The command %s failed: %v.", de.Command, de.Err)
		if len(de.Suggestions) > 0 {
			b.WriteString(" The following existing decks have similar names:\n\n")
			for _, s := range de.Suggestions {
				fmt.Fprintf(&b, "* %s\n", s)
			}
			b.WriteString("\nIf one of these names roughly matches the name the user gave you, " +
				"assume there was an audio-to-text error and use this deck name.")
		}
		if len(de.Executed) > 0 {
			b.WriteString(executedList(de.Executed))
		}
		return strings.TrimSpace(b.String()) + "\n\nPlease try again."
	}

	var re *ResourceError
	if errors.As(err, &re) && len(re.Executed) > 0 {
		return fmt.Sprintf("An error occurred: %v.%s\n\nPlease try again.", re, executedList(re.Executed))
	}

	return fmt.Sprintf("An error occurred: %v. Please try again.", err)
}

func executedList(executed []string) string {
	var b strings.Builder
	b.WriteString("\n\nThese commands were already executed successfully. Do not send them again:\n")
	for i, name := range executed {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return strings.TrimRight(b.String(), "\n")
}
