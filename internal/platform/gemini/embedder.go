package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/search"
	"github.com/phrazzld/scry-assistant/internal/stream"
	"google.golang.org/genai"
)

// Gemini task types for retrieval embeddings.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// embedBatchSize is the largest number of texts sent in one request.
const embedBatchSize = 100

// ContentEmbedder is the part of the genai Models service the Embedder uses.
type ContentEmbedder interface {
	EmbedContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Embedder implements search.Embedder using Gemini embedding models.
type Embedder struct {
	logger *slog.Logger
	config config.LLMConfig
	client ContentEmbedder
	retry  retryPolicy
}

var _ search.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder with the provided dependencies.
//
// Parameters:
//   - client: The Gemini Models service, usually (*genai.Client).Models
//   - cfg: LLM configuration containing the embedding model name
//   - logger: A structured logger for operation logging
//
// Returns:
//   - A properly initialized Embedder or an error if the configuration is invalid
func NewEmbedder(client ContentEmbedder, cfg config.LLMConfig, logger *slog.Logger) (*Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "gemini_embedder"))

	if err := validateConfig(context.Background(), logger, cfg, true); err != nil {
		return nil, err
	}

	return &Embedder{
		logger: logger,
		config: cfg,
		client: client,
		retry:  newRetryPolicy(cfg),
	}, nil
}

// EmbedDocuments embeds card texts for storage in the index. Large inputs are
// split into several requests.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batches, err := stream.New(texts, embedBatchSize)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for batches.HasNext() {
		batch, err := e.embed(ctx, batches.NextChunk(), taskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	e.logger.DebugContext(ctx, "embedded documents", slog.Int("count", len(vectors)))
	return vectors, nil
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	var vectors [][]float32
	err := doWithRetry(ctx, e.logger, e.retry.backoff(), "embed_content", func(ctx context.Context) error {
		resp, err := e.client.EmbedContent(ctx, e.config.EmbeddingModelName, contents,
			&genai.EmbedContentConfig{TaskType: taskType})
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Embeddings) != len(texts) {
			got := 0
			if resp != nil {
				got = len(resp.Embeddings)
			}
			return fmt.Errorf("%w: sent %d texts, got %d embeddings", ErrEmbeddingCount, len(texts), got)
		}

		vectors = make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			vectors[i] = emb.Values
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
