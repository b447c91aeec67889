package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// ErrEmbeddingMismatch is returned when an embedder returns a different
// number of vectors than texts it was given.
var ErrEmbeddingMismatch = errors.New("embedder returned wrong number of vectors")

// Embedder turns texts into vectors. Query and document embeddings are
// requested separately so providers can use task-specific models.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CardSource lists every card that should be searchable.
type CardSource interface {
	ListAllCards(ctx context.Context) ([]*domain.Card, error)
}

type cachedVector struct {
	text   string
	vector []float32
}

// CardIndex is an Index over a card source. Card embeddings are cached by
// card ID and recomputed only when the card text changes.
type CardIndex struct {
	source   CardSource
	embedder Embedder
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[uuid.UUID]cachedVector
}

var _ Index = (*CardIndex)(nil)

// NewCardIndex creates an index over source.
func NewCardIndex(source CardSource, embedder Embedder, logger *slog.Logger) *CardIndex {
	if logger == nil {
		// ALLOW-PANIC: constructor enforcing required dependency
		panic("logger cannot be nil")
	}
	return &CardIndex{
		source:   source,
		embedder: embedder,
		logger:   logger.With(slog.String("component", "card_index")),
		cache:    make(map[uuid.UUID]cachedVector),
	}
}

// CardText is the text embedded for a card.
func CardText(card *domain.Card) string {
	return "Q: " + card.Question + "\nA: " + card.Answer
}

// SearchCards implements Index.
func (idx *CardIndex) SearchCards(ctx context.Context, query string, topK int) ([]Hit, error) {
	cards, err := idx.source.ListAllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	vectors, err := idx.refresh(ctx, cards)
	if err != nil {
		return nil, err
	}

	q, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits := make([]Hit, 0, len(cards))
	for _, card := range cards {
		hits = append(hits, Hit{
			CardID: card.ID,
			Text:   CardText(card),
			Score:  cosine(q, vectors[card.ID]),
		})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	idx.logger.DebugContext(ctx, "semantic search completed",
		slog.Int("candidates", len(cards)),
		slog.Int("returned", len(hits)))
	return hits, nil
}

// refresh embeds cards that are new or changed and returns the vector of
// every card in cards. Entries for cards that no longer exist are dropped.
func (idx *CardIndex) refresh(ctx context.Context, cards []*domain.Card) (map[uuid.UUID][]float32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var stale []*domain.Card
	var texts []string
	live := make(map[uuid.UUID]struct{}, len(cards))
	for _, card := range cards {
		live[card.ID] = struct{}{}
		text := CardText(card)
		if cached, ok := idx.cache[card.ID]; ok && cached.text == text {
			continue
		}
		stale = append(stale, card)
		texts = append(texts, text)
	}

	if len(texts) > 0 {
		embedded, err := idx.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed cards: %w", err)
		}
		if len(embedded) != len(texts) {
			return nil, fmt.Errorf("%w: want %d, got %d", ErrEmbeddingMismatch, len(texts), len(embedded))
		}
		for i, card := range stale {
			idx.cache[card.ID] = cachedVector{text: texts[i], vector: embedded[i]}
		}
		idx.logger.DebugContext(ctx, "embedded cards", slog.Int("count", len(texts)))
	}

	for id := range idx.cache {
		if _, ok := live[id]; !ok {
			delete(idx.cache, id)
		}
	}

	vectors := make(map[uuid.UUID][]float32, len(cards))
	for _, card := range cards {
		vectors[card.ID] = idx.cache[card.ID].vector
	}
	return vectors, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
