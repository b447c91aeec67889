package search

import (
	"fmt"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Substring matches cards whose question or answer contains Term.
//
// The term must be contained entirely in one field; it never spans question
// and answer.
type Substring struct {
	Term          string `json:"search_substring"`
	InQuestion    bool   `json:"search_in_question"`
	InAnswer      bool   `json:"search_in_answer"`
	CaseSensitive bool   `json:"case_sensitive"`
}

var _ Strategy = Substring{}

// Search implements Strategy.
func (s Substring) Search(card *domain.Card) bool {
	return s.match(card, strings.Contains)
}

// Describe implements Strategy.
func (s Substring) Describe() string {
	return fmt.Sprintf("exact %q (%s)", s.Term, s.scope())
}

func (s Substring) match(card *domain.Card, contains func(text, term string) bool) bool {
	term := s.normalize(s.Term)
	if s.InQuestion && contains(s.normalize(card.Question), term) {
		return true
	}
	if s.InAnswer && contains(s.normalize(card.Answer), term) {
		return true
	}
	return false
}

func (s Substring) normalize(text string) string {
	if s.CaseSensitive {
		return text
	}
	return strings.ToLower(text)
}

func (s Substring) scope() string {
	var parts []string
	if s.InQuestion {
		parts = append(parts, "question")
	}
	if s.InAnswer {
		parts = append(parts, "answer")
	}
	if len(parts) == 0 {
		parts = append(parts, "nowhere")
	}
	if s.CaseSensitive {
		parts = append(parts, "case sensitive")
	}
	return strings.Join(parts, ", ")
}
