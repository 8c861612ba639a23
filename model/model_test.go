package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morgusai/orchestron/core"
)

func TestMockModelReplaysScript(t *testing.T) {
	m := NewMockModel("test").Enqueue(
		&Response{Content: "first", FinishReason: "stop"},
		&Response{ToolCalls: []ToolCall{{ID: "c1", Name: "think", Arguments: "{}"}}, FinishReason: "tool_calls"},
	)

	resp, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "think", resp.ToolCalls[0].Name)

	_, err = m.Generate(context.Background(), Request{})
	assert.Error(t, err, "calls past the script must fail loudly")
}

func TestMockModelRecordsRequests(t *testing.T) {
	m := NewMockModel("test").Enqueue(&Response{Content: "ok"})

	req := Request{
		System:   "be helpful",
		Messages: []core.Message{core.NewUserMessage("hi")},
	}
	_, err := m.Generate(context.Background(), req)
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "be helpful", reqs[0].System)
	assert.Equal(t, 1, m.Calls())
}

func TestMockModelFailAt(t *testing.T) {
	boom := errors.New("provider down")
	m := NewMockModel("test").Enqueue(&Response{Content: "ok"}).FailAt(0, boom)

	_, err := m.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestResponseEmpty(t *testing.T) {
	assert.True(t, (&Response{}).Empty())
	assert.False(t, (&Response{Content: "x"}).Empty())
	assert.False(t, (&Response{ToolCalls: []ToolCall{{Name: "think"}}}).Empty())
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(TokenUsage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5})

	assert.Equal(t, TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20}, u)
}

func TestCachingModelDeduplicatesRequests(t *testing.T) {
	inner := NewMockModel("test").Enqueue(&Response{Content: "cached answer"})
	cached := NewCachingModel(inner, 8)

	req := Request{Messages: []core.Message{core.NewUserMessage("question")}}

	first, err := cached.Generate(context.Background(), req)
	require.NoError(t, err)

	second, err := cached.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls(), "identical requests must hit the cache")
	assert.Equal(t, "test", cached.Info().Name)
}

func TestCachingModelMissesOnDifferentRequests(t *testing.T) {
	inner := NewMockModel("test").Enqueue(
		&Response{Content: "a"},
		&Response{Content: "b"},
	)
	cached := NewCachingModel(inner, 8)

	respA, err := cached.Generate(context.Background(), Request{Messages: []core.Message{core.NewUserMessage("one")}})
	require.NoError(t, err)
	respB, err := cached.Generate(context.Background(), Request{Messages: []core.Message{core.NewUserMessage("two")}})
	require.NoError(t, err)

	assert.NotEqual(t, respA.Content, respB.Content)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachingModelDoesNotCacheErrors(t *testing.T) {
	inner := NewMockModel("test").
		Enqueue(&Response{Content: "unused"}, &Response{Content: "recovered"}).
		FailAt(0, errors.New("transient"))
	cached := NewCachingModel(inner, 8)

	req := Request{Messages: []core.Message{core.NewUserMessage("retry me")}}

	_, err := cached.Generate(context.Background(), req)
	require.Error(t, err)

	resp, err := cached.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
}
