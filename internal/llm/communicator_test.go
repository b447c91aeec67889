package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoModel(calls *[][]llm.Message) llm.ModelFunc {
	return func(_ context.Context, messages []llm.Message, _ ...llm.Option) (string, error) {
		*calls = append(*calls, messages)
		return "reply to: " + messages[len(messages)-1].Content, nil
	}
}

func TestCommunicatorSystemPrompt(t *testing.T) {
	var calls [][]llm.Message
	c := llm.NewCommunicator(echoModel(&calls))

	require.NoError(t, c.SetSystemPrompt("be brief"))
	_, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)

	err = c.SetSystemPrompt("too late")
	assert.ErrorIs(t, err, llm.ErrSystemPromptNotFirst)

	require.Len(t, calls, 1)
	assert.Equal(t, llm.RoleSystem, calls[0][0].Role)
	assert.Equal(t, "be brief", calls[0][0].Content)
}

func TestCommunicatorSendAppendsReply(t *testing.T) {
	var calls [][]llm.Message
	c := llm.NewCommunicator(echoModel(&calls))

	reply, err := c.Send(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "reply to: first", reply)

	_, err = c.Send(context.Background(), "second")
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []llm.Role{llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant},
		[]llm.Role{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Len(t, calls[1], 3)
}

func TestCommunicatorSendFailureLeavesTranscript(t *testing.T) {
	failing := llm.ModelFunc(func(context.Context, []llm.Message, ...llm.Option) (string, error) {
		return "", errors.New("unavailable")
	})
	c := llm.NewCommunicator(failing)
	c.AddMessage("context")

	_, err := c.Send(context.Background(), "question")
	require.Error(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "context", msgs[0].Content)
}

func TestCommunicatorVisibilityBlocks(t *testing.T) {
	var calls [][]llm.Message
	c := llm.NewCommunicator(echoModel(&calls))
	require.NoError(t, c.SetSystemPrompt("system"))

	c.StartVisibilityBlock()
	assert.True(t, c.InVisibilityBlock())
	_, err := c.Send(context.Background(), "chunk one")
	require.NoError(t, err)

	c.StartVisibilityBlock()
	_, err = c.Send(context.Background(), "nested")
	require.NoError(t, err)
	require.NoError(t, c.EndVisibilityBlock())
	assert.Len(t, c.Messages(), 3)

	require.NoError(t, c.EndVisibilityBlock())
	assert.False(t, c.InVisibilityBlock())
	assert.Len(t, c.Messages(), 1)

	assert.ErrorIs(t, c.EndVisibilityBlock(), llm.ErrNoVisibilityBlock)
}

func TestCommunicatorMessagesIsCopy(t *testing.T) {
	var calls [][]llm.Message
	c := llm.NewCommunicator(echoModel(&calls))
	c.AddMessage("original")

	msgs := c.Messages()
	msgs[0].Content = "changed"

	assert.Equal(t, "original", c.Messages()[0].Content)
}

func TestCommunicatorPassesOptions(t *testing.T) {
	var got llm.Options
	model := llm.ModelFunc(func(_ context.Context, _ []llm.Message, opts ...llm.Option) (string, error) {
		got = llm.ApplyOptions(opts...)
		return "ok", nil
	})
	c := llm.NewCommunicator(model, llm.WithTemperature(0.2), llm.WithMaxTokens(64))

	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-6)
	assert.Equal(t, int32(64), got.MaxTokens)
}
