package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/phrazzld/scry-assistant/internal/search"
)

// MockIndex implements search.Index with fixed hits.
type MockIndex struct {
	// SearchCardsFn allows test cases to replace the default behavior
	SearchCardsFn func(ctx context.Context, query string, topK int) ([]search.Hit, error)

	// Default response values
	Hits []search.Hit
	Err  error

	// Call tracking for verification
	SearchCardsCalls struct {
		mu      sync.Mutex
		Count   int
		Queries []string
		TopKs   []int
	}
}

var _ search.Index = (*MockIndex)(nil)

// SearchCards implements search.Index. Without SearchCardsFn it returns at
// most topK of Hits.
func (m *MockIndex) SearchCards(ctx context.Context, query string, topK int) ([]search.Hit, error) {
	m.SearchCardsCalls.mu.Lock()
	m.SearchCardsCalls.Count++
	m.SearchCardsCalls.Queries = append(m.SearchCardsCalls.Queries, query)
	m.SearchCardsCalls.TopKs = append(m.SearchCardsCalls.TopKs, topK)
	m.SearchCardsCalls.mu.Unlock()

	if m.SearchCardsFn != nil {
		return m.SearchCardsFn(ctx, query, topK)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	hits := m.Hits
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// MockEmbedder implements search.Embedder with keyword vectors: one
// dimension per vocabulary word, set to 1 when the text contains the word.
type MockEmbedder struct {
	Vocabulary []string
	Err        error

	mu        sync.Mutex
	documents int
	queries   int
}

var _ search.Embedder = (*MockEmbedder)(nil)

// EmbedDocuments implements search.Embedder.
func (m *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.documents += len(texts)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

// EmbedQuery implements search.Embedder.
func (m *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(text), nil
}

// Counts returns how many documents and queries were embedded.
func (m *MockEmbedder) Counts() (documents, queries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents, m.queries
}

func (m *MockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(m.Vocabulary)+1)
	v[len(m.Vocabulary)] = 0.01
	for i, word := range m.Vocabulary {
		if strings.Contains(lower, strings.ToLower(word)) {
			v[i] = 1
		}
	}
	return v
}
