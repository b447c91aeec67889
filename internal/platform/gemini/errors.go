package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the LLM configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrContentBlocked is returned when Gemini refuses to answer because of
	// its safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when every retry of a request failed.
	ErrTransientFailure = errors.New("gemini request failed after retries")

	// ErrEmbeddingCount is returned when Gemini returns a different number of
	// embeddings than texts were sent.
	ErrEmbeddingCount = errors.New("unexpected number of embeddings")
)
