package search

import (
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Strategy decides whether a single card matches a search.
type Strategy interface {
	// Search reports whether card matches.
	Search(card *domain.Card) bool

	// Describe returns a short human-readable summary used in prompts and logs.
	Describe() string
}

// UnionSearchAll returns every card matched by at least one strategy. Cards
// keep their input order and each card appears once.
func UnionSearchAll(strategies []Strategy, cards []*domain.Card) []*domain.Card {
	seen := make(map[string]struct{}, len(cards))
	found := make([]*domain.Card, 0)

	for _, card := range cards {
		key := card.ID.String()
		if _, dup := seen[key]; dup {
			continue
		}
		for _, s := range strategies {
			if s.Search(card) {
				seen[key] = struct{}{}
				found = append(found, card)
				break
			}
		}
	}
	return found
}
