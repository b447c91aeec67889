package command

import (
	"sort"

	"github.com/agext/levenshtein"
)

// DefaultSuggestions is the number of near-miss deck names offered in a
// corrective message.
const DefaultSuggestions = 2

// SuggestDecks returns up to n names from names ordered by edit distance to
// target, closest first. Ties keep the order of names.
func SuggestDecks(names []string, target string, n int) []string {
	if n <= 0 || len(names) == 0 {
		return nil
	}

	type scored struct {
		name     string
		distance int
	}
	candidates := make([]scored, len(names))
	for i, name := range names {
		candidates[i] = scored{name: name, distance: levenshtein.Distance(name, target, nil)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = candidates[i].name
	}
	return out
}
