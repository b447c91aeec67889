package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/scry-assistant/internal/config"
	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeGenerator struct {
	calls     []generateCall
	responses []*genai.GenerateContentResponse
	errs      []error
}

func (f *fakeGenerator) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, generateCall{model: model, contents: contents, config: cfg})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return textResponse("default"), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:       "test-key",
		ModelName:          "gemini-test",
		EmbeddingModelName: "embedding-test",
		Temperature:        0.2,
		MaxOutputTokens:    256,
		MaxRetries:         2,
		RetryDelaySeconds:  1,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, client ContentGenerator) *Model {
	t.Helper()
	m, err := NewModel(client, testConfig(), quietLogger())
	require.NoError(t, err)
	m.retry.baseDelay = time.Millisecond
	return m
}

func TestNewModelValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.LLMConfig)
	}{
		{name: "missing key", mutate: func(c *config.LLMConfig) { c.GeminiAPIKey = "" }},
		{name: "missing model", mutate: func(c *config.LLMConfig) { c.ModelName = "" }},
		{name: "negative retries", mutate: func(c *config.LLMConfig) { c.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewModel(&fakeGenerator{}, cfg, quietLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewModel(nil, testConfig(), quietLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerateMapsTranscript(t *testing.T) {
	t.Parallel()

	client := &fakeGenerator{responses: []*genai.GenerateContentResponse{textResponse("task")}}
	m := newTestModel(t, client)

	reply, err := m.Generate(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "You classify requests."},
		{Role: llm.RoleUser, Content: "Create a deck"},
		{Role: llm.RoleAssistant, Content: "task"},
		{Role: llm.RoleUser, Content: "Are you sure?"},
	}, llm.WithTemperature(0.7))
	require.NoError(t, err)
	assert.Equal(t, "task", reply)

	require.Len(t, client.calls, 1)
	call := client.calls[0]
	assert.Equal(t, "gemini-test", call.model)
	require.Len(t, call.contents, 3)
	assert.Equal(t, genai.RoleUser, call.contents[0].Role)
	assert.Equal(t, genai.RoleModel, call.contents[1].Role)
	assert.Equal(t, "Are you sure?", call.contents[2].Parts[0].Text)

	require.NotNil(t, call.config.SystemInstruction)
	assert.Equal(t, "You classify requests.", call.config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, call.config.Temperature)
	assert.InDelta(t, 0.7, *call.config.Temperature, 1e-6)
	assert.Equal(t, int32(256), call.config.MaxOutputTokens)
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	client := &fakeGenerator{
		errs:      []error{errors.New("connection reset"), nil},
		responses: []*genai.GenerateContentResponse{nil, textResponse("question")},
	}
	m := newTestModel(t, client)

	reply, err := m.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "question", reply)
	assert.Len(t, client.calls, 2)
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	down := errors.New("service unavailable")
	client := &fakeGenerator{errs: []error{down, down, down, down}}
	m := newTestModel(t, client)

	_, err := m.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.ErrorIs(t, err, down)
	assert.Len(t, client.calls, 3)
}

func TestGenerateDoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	blocked := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}
	client := &fakeGenerator{responses: []*genai.GenerateContentResponse{blocked}}
	m := newTestModel(t, client)

	_, err := m.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrContentBlocked)
	assert.Len(t, client.calls, 1)

	empty := &fakeGenerator{responses: []*genai.GenerateContentResponse{{}}}
	m = newTestModel(t, empty)
	_, err = m.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Len(t, empty.calls, 1)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeGenerator{errs: []error{context.Canceled}}
	m := newTestModel(t, client)

	_, err := m.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTransientFailure)
}

func TestGenerateRejectsSystemOnlyTranscript(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &fakeGenerator{})
	_, err := m.Generate(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "rules"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, isTransient(errors.New("dial tcp: timeout")))
	assert.False(t, isTransient(context.DeadlineExceeded))
	assert.False(t, isTransient(ErrContentBlocked))
	assert.False(t, isTransient(llm.ErrEmptyResponse))
}
