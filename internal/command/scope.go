package command

import (
	"context"
	"fmt"
	"slices"

	"github.com/phrazzld/scry-assistant/internal/domain"
)

type scopeKey struct{}

// WithScope attaches the cards a stream chunk shows to the model. Card
// commands address these cards by their 1-based position.
func WithScope(ctx context.Context, cards []*domain.Card) context.Context {
	return context.WithValue(ctx, scopeKey{}, slices.Clone(cards))
}

// ScopeFrom returns the cards attached with WithScope.
func ScopeFrom(ctx context.Context) []*domain.Card {
	cards, _ := ctx.Value(scopeKey{}).([]*domain.Card)
	return cards
}

// scopedCard resolves a 1-based card number against the scope in ctx.
func scopedCard(ctx context.Context, number int) (*domain.Card, error) {
	cards := ScopeFrom(ctx)
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no cards are currently shown", ErrFieldValue)
	}
	if number < 1 || number > len(cards) {
		return nil, fmt.Errorf("%w: key %q must be between 1 and %d, got %d", ErrFieldValue, "card", len(cards), number)
	}
	return cards[number-1], nil
}
