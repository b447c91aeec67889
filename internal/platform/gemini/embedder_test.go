package gemini

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeEmbedder struct {
	taskTypes  []string
	batchSizes []int
	short      bool
}

func (f *fakeEmbedder) EmbedContent(
	_ context.Context,
	_ string,
	contents []*genai.Content,
	cfg *genai.EmbedContentConfig,
) (*genai.EmbedContentResponse, error) {
	f.taskTypes = append(f.taskTypes, cfg.TaskType)
	f.batchSizes = append(f.batchSizes, len(contents))

	n := len(contents)
	if f.short {
		n--
	}
	resp := &genai.EmbedContentResponse{}
	for i := 0; i < n; i++ {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{
			Values: []float32{float32(len(contents[i].Parts[0].Text)), 1},
		})
	}
	return resp, nil
}

func newTestEmbedder(t *testing.T, client ContentEmbedder) *Embedder {
	t.Helper()
	e, err := NewEmbedder(client, testConfig(), quietLogger())
	require.NoError(t, err)
	e.retry.baseDelay = time.Millisecond
	return e
}

func TestNewEmbedderRequiresModelName(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.EmbeddingModelName = ""
	_, err := NewEmbedder(&fakeEmbedder{}, cfg, quietLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbedDocumentsBatches(t *testing.T) {
	t.Parallel()

	client := &fakeEmbedder{}
	e := newTestEmbedder(t, client)

	texts := make([]string, 230)
	for i := range texts {
		texts[i] = fmt.Sprintf("card %d", i)
	}

	vectors, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 230)
	assert.Equal(t, []int{100, 100, 30}, client.batchSizes)
	for _, task := range client.taskTypes {
		assert.Equal(t, taskRetrievalDocument, task)
	}

	none, err := e.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEmbedQuery(t *testing.T) {
	t.Parallel()

	client := &fakeEmbedder{}
	e := newTestEmbedder(t, client)

	vector, err := e.EmbedQuery(context.Background(), "planets")
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 1}, vector)
	assert.Equal(t, []string{taskRetrievalQuery}, client.taskTypes)
}

func TestEmbedCountMismatch(t *testing.T) {
	t.Parallel()

	client := &fakeEmbedder{short: true}
	e := newTestEmbedder(t, client)

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingCount)
	assert.Len(t, client.batchSizes, 1)
}
