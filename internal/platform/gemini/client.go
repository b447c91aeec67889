package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/phrazzld/scry-assistant/internal/redact"
	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

const (
	defaultRetryDelaySeconds = 2
	retryJitterPercent       = 10
)

// NewClient creates a Gemini API client from the LLM configuration. The
// client's Models service satisfies both ContentGenerator and ContentEmbedder.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - cfg: LLM configuration containing the API key
//
// Returns:
//   - A genai client or an error wrapping ErrInvalidConfig
func NewClient(ctx context.Context, cfg config.LLMConfig) (*genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return client, nil
}

// retryPolicy describes how often and how fast a request is repeated.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

func newRetryPolicy(cfg config.LLMConfig) retryPolicy {
	delay := cfg.RetryDelaySeconds
	if delay < 1 {
		delay = defaultRetryDelaySeconds
	}
	return retryPolicy{
		maxRetries: max(cfg.MaxRetries, 0),
		baseDelay:  time.Duration(delay) * time.Second,
	}
}

// backoff builds the backoff for one request. Backoffs are stateful, so
// every request gets its own.
func (p retryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.baseDelay)
	b = retry.WithJitterPercent(retryJitterPercent, b)
	return retry.WithMaxRetries(uint64(p.maxRetries), b)
}

// doWithRetry runs call until it succeeds, fails permanently or the backoff
// gives up. Failures that survived at least one retry wrap ErrTransientFailure.
//
// Parameters:
//   - ctx: Context for the operation; cancellation stops retrying immediately
//   - logger: Logger for recording attempts
//   - backoff: The retry policy for this request
//   - operation: Name of the operation, used in log entries
//   - call: The request to perform
//
// Returns:
//   - nil on success, or the last error
func doWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	backoff retry.Backoff,
	operation string,
	call func(ctx context.Context) error,
) error {
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}

		if !isTransient(err) {
			logger.ErrorContext(ctx, "Gemini request failed permanently",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				redact.Attr(err))
			return err
		}

		logger.WarnContext(ctx, "Gemini request failed, retrying",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			redact.Attr(err))
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	if attempt > 1 && isTransient(err) {
		return fmt.Errorf("%w: %s after %d attempts: %w", ErrTransientFailure, operation, attempt, err)
	}
	return err
}

// isTransient reports whether a failed request is worth repeating.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ErrContentBlocked) || errors.Is(err, llm.ErrEmptyResponse) ||
		errors.Is(err, ErrEmbeddingCount) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}

	// Network failures have no status code.
	return true
}
