package search

import (
	"errors"
	"fmt"

	"github.com/agext/levenshtein"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// DefaultFuzzyThreshold is the similarity a fuzzy match needs when the caller
// does not choose one.
const DefaultFuzzyThreshold = 0.8

// ErrInvalidThreshold is returned for fuzzy thresholds outside [0, 1].
var ErrInvalidThreshold = errors.New("fuzzy threshold must be between 0 and 1")

// indel counts a substitution as one deletion plus one insertion.
var indel = levenshtein.NewParams().SubCost(2)

// Fuzzy matches cards that contain a substring similar to Term.
type Fuzzy struct {
	Substring
	Threshold float64 `json:"fuzzy"`
}

var _ Strategy = Fuzzy{}

// NewFuzzy validates the threshold and returns a fuzzy strategy.
func NewFuzzy(s Substring, threshold float64) (Fuzzy, error) {
	if threshold < 0 || threshold > 1 {
		return Fuzzy{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	return Fuzzy{Substring: s, Threshold: threshold}, nil
}

// Search implements Strategy.
func (f Fuzzy) Search(card *domain.Card) bool {
	return f.match(card, func(text, term string) bool {
		return PartialRatio(term, text) >= f.Threshold
	})
}

// Describe implements Strategy.
func (f Fuzzy) Describe() string {
	return fmt.Sprintf("fuzzy %q >= %.2f (%s)", f.Term, f.Threshold, f.scope())
}

// PartialRatio returns the best normalized similarity in [0, 1] between the
// shorter string and any equally long window of the longer one. Similarity is
// 1 - indel/(len(a)+len(b)) on runes. Two empty strings are not similar.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	needle := string(short)
	total := float64(2 * len(short))
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		window := string(long[i : i+len(short)])
		d := levenshtein.Distance(needle, window, indel)
		if sim := 1 - float64(d)/total; sim > best {
			best = sim
			if best == 1 {
				break
			}
		}
	}
	return best
}
