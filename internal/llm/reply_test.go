package llm_test

import (
	"testing"

	"github.com/phrazzld/scry-assistant/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestStripBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no block", in: "plain", want: "plain"},
		{name: "single block", in: "<think>hmm</think>answer", want: "answer"},
		{name: "two blocks", in: "a<think>x</think>b<think>y</think>c", want: "abc"},
		{name: "unterminated", in: "keep<think>dangling", want: "keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.StripBlock(tt.in, "think"))
		})
	}
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "Biology", llm.CleanReply("<think>deck?</think>\n  \"Biology\"  "))
}

func TestFindLastSignal(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   string
		wantOK bool
	}{
		{name: "single", reply: "The answer is Yes.", want: "yes", wantOK: true},
		{name: "latest wins", reply: "not a question, this is a task", want: "task", wantOK: true},
		{name: "whole words only", reply: "tasks and questionnaires", wantOK: false},
		{name: "ignores think", reply: "<think>maybe task</think> question", want: "question", wantOK: true},
		{name: "none", reply: "I cannot tell", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var candidates []string
			switch tt.name {
			case "single":
				candidates = []string{"yes", "no"}
			default:
				candidates = []string{"question", "task", "study"}
			}
			got, ok := llm.FindLastSignal(tt.reply, candidates...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastNumber(t *testing.T) {
	n, ok := llm.LastNumber("Options 1 and 3 are close, I pick 3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = llm.LastNumber("none")
	assert.False(t, ok)
}
