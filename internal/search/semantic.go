package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// Hit is one ranked result of a semantic index lookup.
type Hit struct {
	CardID uuid.UUID
	Text   string
	Score  float64
}

// Index ranks cards by semantic similarity to a free-text query.
type Index interface {
	// SearchCards returns at most topK hits, best first.
	SearchCards(ctx context.Context, query string, topK int) ([]Hit, error)
}

// Semantic matches the cards an Index ranks among the top K for Prompt.
// The index is queried once by NewSemantic; Search only checks membership.
type Semantic struct {
	Prompt string
	TopK   int

	ids map[uuid.UUID]struct{}
}

var _ Strategy = (*Semantic)(nil)

// NewSemantic queries index for prompt and returns a strategy matching the hits.
func NewSemantic(ctx context.Context, index Index, prompt string, topK int) (*Semantic, error) {
	hits, err := index.SearchCards(ctx, prompt, topK)
	if err != nil {
		return nil, fmt.Errorf("semantic search for %q: %w", prompt, err)
	}

	ids := make(map[uuid.UUID]struct{}, len(hits))
	for _, h := range hits {
		ids[h.CardID] = struct{}{}
	}
	return &Semantic{Prompt: prompt, TopK: topK, ids: ids}, nil
}

// Search implements Strategy.
func (s *Semantic) Search(card *domain.Card) bool {
	_, ok := s.ids[card.ID]
	return ok
}

// Describe implements Strategy.
func (s *Semantic) Describe() string {
	return fmt.Sprintf("content %q (top %d)", s.Prompt, s.TopK)
}
