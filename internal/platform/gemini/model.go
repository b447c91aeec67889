package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"google.golang.org/genai"
)

// ContentGenerator is the part of the genai Models service the Model uses.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Model implements llm.Model using Gemini chat completions.
type Model struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// client performs the API calls
	client ContentGenerator

	// retry controls how transient failures are repeated
	retry retryPolicy
}

var _ llm.Model = (*Model)(nil)

// NewModel creates a Model with the provided dependencies.
//
// Parameters:
//   - client: The Gemini Models service, usually (*genai.Client).Models
//   - cfg: LLM configuration containing the model name and retry settings
//   - logger: A structured logger for operation logging
//
// Returns:
//   - A properly initialized Model or an error if the configuration is invalid
func NewModel(client ContentGenerator, cfg config.LLMConfig, logger *slog.Logger) (*Model, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "gemini_model"))

	if err := validateConfig(context.Background(), logger, cfg, false); err != nil {
		return nil, err
	}

	return &Model{
		logger: logger,
		config: cfg,
		client: client,
		retry:  newRetryPolicy(cfg),
	}, nil
}

// Generate sends the transcript to Gemini and returns the text of the reply.
// Transient API failures are retried according to the configuration.
func (m *Model) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	contents, system := toContents(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("%w: transcript has no user or assistant messages", ErrInvalidConfig)
	}

	request := m.requestConfig(system, llm.ApplyOptions(opts...))

	var text string
	err := doWithRetry(ctx, m.logger, m.retry.backoff(), "generate_content", func(ctx context.Context) error {
		resp, err := m.client.GenerateContent(ctx, m.config.ModelName, contents, request)
		if err != nil {
			return err
		}
		text, err = replyText(resp)
		return err
	})
	if err != nil {
		return "", err
	}

	m.logger.DebugContext(ctx, "Gemini reply received",
		slog.Int("messages", len(messages)),
		slog.Int("reply_length", len(text)))
	return text, nil
}

// requestConfig merges per-call options over the configured defaults.
func (m *Model) requestConfig(system *genai.Content, opts llm.Options) *genai.GenerateContentConfig {
	temperature := m.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	request := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SystemInstruction: system,
	}

	if opts.MaxTokens > 0 {
		request.MaxOutputTokens = opts.MaxTokens
	} else if m.config.MaxOutputTokens > 0 {
		request.MaxOutputTokens = m.config.MaxOutputTokens
	}

	return request
}

// toContents converts a transcript into Gemini contents. System messages are
// joined into the system instruction, which Gemini keeps outside the turns.
func toContents(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

// replyText extracts the generated text, turning refusals and empty answers into errors.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", llm.ErrEmptyResponse)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", llm.ErrEmptyResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in response", llm.ErrEmptyResponse)
	}
	return text, nil
}
