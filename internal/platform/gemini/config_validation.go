package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-assistant/internal/config"
)

// validateConfig checks the settings a Gemini client cannot work without.
//
// Parameters:
//   - ctx: Context for logging
//   - logger: Logger for recording validation results
//   - cfg: The LLM configuration to validate
//   - embeddings: Whether the embedding model name is required as well
//
// Returns:
//   - An error wrapping ErrInvalidConfig if validation fails, nil otherwise
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, embeddings bool) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "missing Gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if !embeddings && cfg.ModelName == "" {
		logger.ErrorContext(ctx, "missing Gemini model name")
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	if embeddings && cfg.EmbeddingModelName == "" {
		logger.ErrorContext(ctx, "missing Gemini embedding model name")
		return fmt.Errorf("%w: embedding model name cannot be empty", ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative, got %d", ErrInvalidConfig, cfg.MaxRetries)
	}

	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "invalid retry delay, using default",
			slog.Int("value", cfg.RetryDelaySeconds),
			slog.Int("default", defaultRetryDelaySeconds))
	}

	return nil
}
