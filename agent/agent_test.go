package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morgusai/orchestron/core"
	"github.com/morgusai/orchestron/executor"
	"github.com/morgusai/orchestron/model"
	"github.com/morgusai/orchestron/tool"
)

func newRegistry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry(nil)
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}
	return r
}

func browseTool(visited *[]string) tool.Tool {
	return tool.NewFunctionTool(
		tool.NameBrowseWeb,
		"Open a web page",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string"},
			},
			"required": []string{"url"},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			url := args["url"].(string)
			if visited != nil {
				*visited = append(*visited, url)
			}
			return "page content for " + url, nil
		},
	)
}

func drain(events <-chan core.Event, outcomeCh <-chan *Outcome) ([]core.Event, *Outcome) {
	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected, <-outcomeCh
}

func eventsOfType(events []core.Event, typ core.EventType) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunCompletesOnFirstIteration(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(
		&model.Response{Content: "the answer is 42", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t))

	events, outcomeCh := o.Run(context.Background(), "what is six times seven?")
	collected, outcome := drain(events, outcomeCh)

	assert.Equal(t, StatusComplete, outcome.Status)
	assert.Equal(t, "the answer is 42", outcome.FinalResponse)
	assert.Equal(t, 1, outcome.Iterations)

	responses := eventsOfType(collected, core.EventResponse)
	require.Len(t, responses, 1, "exactly one response event")
	assert.Equal(t, "the answer is 42", responses[0].Message)
	require.Len(t, eventsOfType(collected, core.EventComplete), 1)
}

func TestRunExecutesToolCallsSequentially(t *testing.T) {
	var visited []string
	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			ToolCalls: []model.ToolCall{
				{ID: "c1", Name: tool.NameBrowseWeb, Arguments: `{"url":"https://a.example"}`},
				{ID: "c2", Name: tool.NameBrowseWeb, Arguments: `{"url":"https://b.example"}`},
			},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "here is what I found", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t, browseTool(&visited)))

	events, outcomeCh := o.Run(context.Background(), "research something")
	collected, outcome := drain(events, outcomeCh)

	assert.Equal(t, StatusComplete, outcome.Status)
	assert.Equal(t, 2, outcome.Iterations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, visited,
		"calls within a turn run in order")

	calls := eventsOfType(collected, core.EventToolCall)
	results := eventsOfType(collected, core.EventToolResult)
	require.Len(t, calls, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", calls[0].ToolCallID)
	assert.False(t, results[0].IsError)

	// Tool results land in history as tool-role messages.
	var toolMsgs int
	for _, msg := range o.History() {
		if msg.IsToolMessage() {
			toolMsgs++
		}
	}
	assert.Equal(t, 2, toolMsgs)
}

func TestRunForcesRequiredToolAfterBrowsing(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: tool.NameBrowseWeb, Arguments: `{"url":"https://a.example"}`}},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "based on the page, done", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t, browseTool(nil)))

	_, err := o.RunSync(context.Background(), "look this up")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].RequiredTool, "initial state forces nothing")
	assert.Equal(t, tool.NameBrowseWeb, reqs[1].RequiredTool,
		"browsing state must force the browse tool")
}

func TestRunFiltersBlockedTools(t *testing.T) {
	deploy := tool.NewFunctionTool(tool.NameDeployWebsite, "Deploy the site", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) { return "deployed", nil })

	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: tool.NameBrowseWeb, Arguments: `{"url":"https://a.example"}`}},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "in summary, all good", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t, browseTool(nil), deploy))

	_, err := o.RunSync(context.Background(), "check the docs")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Tools, 2, "initial state exposes every registered tool")

	var names []string
	for _, def := range reqs[1].Tools {
		names = append(names, def.Name)
	}
	assert.NotContains(t, names, tool.NameDeployWebsite, "deploy is blocked while browsing")
	assert.Contains(t, names, tool.NameBrowseWeb)
}

func TestRunRepairsMalformedArguments(t *testing.T) {
	var visited []string
	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			// Trailing comma: invalid JSON that jsonrepair can fix.
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: tool.NameBrowseWeb, Arguments: `{"url": "https://a.example",}`}},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "here is the summary", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t, browseTool(&visited)))

	outcome, err := o.RunSync(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, outcome.Status)
	assert.Equal(t, []string{"https://a.example"}, visited)
}

func TestRunToolFailureFeedsBackWithoutAborting(t *testing.T) {
	failing := tool.NewFunctionTool("flaky", "always fails", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("upstream timeout")
		})

	m := model.NewMockModel("test").Enqueue(
		&model.Response{
			ToolCalls:    []model.ToolCall{{ID: "c1", Name: "flaky", Arguments: `{}`}},
			FinishReason: "tool_calls",
		},
		&model.Response{Content: "based on the error, giving up gracefully", FinishReason: "stop"},
	)
	o := New(m, newRegistry(t, failing))

	events, outcomeCh := o.Run(context.Background(), "try the flaky thing")
	collected, outcome := drain(events, outcomeCh)

	assert.Equal(t, StatusComplete, outcome.Status, "tool errors never abort the loop")

	results := eventsOfType(collected, core.EventToolResult)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Message, "upstream timeout")
}

func TestRunEmptyResponseIsFatal(t *testing.T) {
	m := model.NewMockModel("test").Enqueue(&model.Response{FinishReason: "stop"})
	o := New(m, newRegistry(t))

	events, outcomeCh := o.Run(context.Background(), "hello?")
	collected, outcome := drain(events, outcomeCh)

	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, core.ErrNoResponse)
	require.Len(t, eventsOfType(collected, core.EventError), 1)
	assert.Empty(t, eventsOfType(collected, core.EventComplete))
}

func TestRunProviderErrorTerminatesLoop(t *testing.T) {
	boom := errors.New("rate limited")
	m := model.NewMockModel("test").FailAt(0, boom)
	o := New(m, newRegistry(t))

	outcome, err := o.RunSync(context.Background(), "hi")

	require.Error(t, err)
	assert.Equal(t, StatusError, outcome.Status)
	assert.ErrorIs(t, outcome.Err, boom)
	assert.Equal(t, 1, m.Calls(), "no retry after a provider error")
}

func TestRunMaxIterationsIsDistinctStatus(t *testing.T) {
	m := model.NewMockModel("test")
	for i := 0; i < 3; i++ {
		m.Enqueue(&model.Response{Content: "still thinking about it", FinishReason: "stop"})
	}
	o := New(m, newRegistry(t), func(o *Options) { o.MaxIterations = 3 })

	outcome, err := o.RunSync(context.Background(), "an endless task")
	require.NoError(t, err, "budget exhaustion is not an error")

	assert.Equal(t, StatusMaxIterations, outcome.Status)
	assert.Equal(t, 3, outcome.Iterations)

	// Each non-final turn appends the continuation nudge.
	var nudges int
	for _, msg := range o.History() {
		if msg.Role == core.RoleUser && msg.Content == continueNudge {
			nudges++
		}
	}
	assert.Equal(t, 3, nudges)
}

func TestRunCompressesLongHistories(t *testing.T) {
	m := model.NewMockModel("test")
	for i := 0; i < 6; i++ {
		m.Enqueue(&model.Response{
			Content:      fmt.Sprintf("still working, see https://example.com/step-%d", i),
			FinishReason: "stop",
		})
	}
	o := New(m, newRegistry(t), func(o *Options) {
		o.SystemPrompt = "You are a diligent agent."
		o.MaxIterations = 6
		o.CompressAfter = 4
		o.KeepRecent = 2
	})

	outcome, err := o.RunSync(context.Background(), "a long task")
	require.NoError(t, err)
	assert.Equal(t, StatusMaxIterations, outcome.Status)

	reqs := m.Requests()
	require.Len(t, reqs, 6)
	assert.NotContains(t, reqs[0].System, "compressed")

	last := reqs[len(reqs)-1]
	assert.Contains(t, last.System, "You are a diligent agent.")
	assert.Contains(t, last.System, "compressed")
	assert.Contains(t, last.System, "https://example.com/step-0",
		"URLs from discarded turns survive in the restoration hint")
	assert.LessOrEqual(t, len(last.Messages), 5, "history stays bounded")
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := model.NewMockModel("test").Enqueue(&model.Response{Content: "unused"})
	o := New(m, newRegistry(t))

	outcome, err := o.RunSync(ctx, "never starts")

	require.Error(t, err)
	assert.Equal(t, StatusError, outcome.Status)
	assert.Equal(t, 0, m.Calls())
}

func TestPhraseDetector(t *testing.T) {
	d := NewPhraseDetector()

	assert.True(t, d.IsComplete("Here is the final report."))
	assert.True(t, d.IsComplete("THE ANSWER IS 42"))
	assert.False(t, d.IsComplete("let me check one more thing"))
}

func TestRunPhasesWalksLifecycle(t *testing.T) {
	m := model.NewMockModel("test")
	for i := 0; i < len(Phases()); i++ {
		m.Enqueue(&model.Response{Content: "phase complete", FinishReason: "stop"})
	}
	o := New(m, newRegistry(t))

	results, err := o.RunPhases(context.Background(), "build a small site")
	require.NoError(t, err)

	require.Len(t, results, len(Phases()))
	assert.Equal(t, PhaseResearch, results[0].Phase)
	assert.Equal(t, PhaseFinalize, results[len(results)-1].Phase)
	for _, pr := range results {
		assert.Equal(t, StatusComplete, pr.Outcome.Status)
	}
}

func TestRunSubtasksFansOut(t *testing.T) {
	factory := func() *Orchestrator {
		m := model.NewMockModel("test").Enqueue(&model.Response{Content: "here is the result", FinishReason: "stop"})
		return New(m, tool.NewRegistry(nil))
	}

	subtasks := []string{"task a", "task b", "task c"}
	res, err := RunSubtasks(context.Background(), subtasks, factory, executor.Config{MaxConcurrency: 2})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.Len(t, res.Results, 3)
	for _, outcome := range res.Results {
		assert.Equal(t, StatusComplete, outcome.Status)
	}
}
