package orchestron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morgusai/orchestron/agent"
	"github.com/morgusai/orchestron/core"
	"github.com/morgusai/orchestron/model"
	"github.com/morgusai/orchestron/tool"
)

func TestRunSyncCollectsEvents(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(
		&model.Response{Content: "here is your answer", FinishReason: "stop"},
	)
	o := New(m, func(o *Options) { o.SystemPrompt = "Be brief." })

	outcome, events, err := o.RunSync(context.Background(), "a question")
	require.NoError(t, err)

	assert.Equal(t, agent.StatusComplete, outcome.Status)
	assert.Equal(t, "here is your answer", outcome.FinalResponse)
	require.NotEmpty(t, events)

	var sawResponse bool
	for _, ev := range events {
		if ev.Type == core.EventResponse {
			sawResponse = true
		}
	}
	assert.True(t, sawResponse)
}

func TestRegisterToolReachesConversations(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: "echo", Arguments: `{"text":"hi"}`}},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "in summary: hi", FinishReason: "stop"},
	)
	o := New(m)

	echo := tool.NewFunctionTool("echo", "Repeat text",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		})
	require.NoError(t, o.RegisterTool(echo))
	assert.Equal(t, []string{"echo"}, o.Tools())

	outcome, _, err := o.RunSync(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusComplete, outcome.Status)
	assert.Equal(t, 2, outcome.Iterations)
}

func TestConversationsAreIndependent(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(
		&model.Response{Content: "the answer is one", FinishReason: "stop"},
		&model.Response{Content: "the answer is two", FinishReason: "stop"},
	)
	o := New(m)

	first := o.NewConversation()
	second := o.NewConversation()

	outcome1, err := first.RunSync(context.Background(), "first question")
	require.NoError(t, err)
	outcome2, err := second.RunSync(context.Background(), "second question")
	require.NoError(t, err)

	assert.Equal(t, "the answer is one", outcome1.FinalResponse)
	assert.Equal(t, "the answer is two", outcome2.FinalResponse)
	assert.Len(t, first.History(), 2, "histories must not bleed across conversations")
}
