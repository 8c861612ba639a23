// Package agent implements the iterative orchestration loop: per turn it
// infers the tool availability state, calls the model with the filtered
// tool set, executes requested tools sequentially, and streams lifecycle
// events until the conversation completes or the iteration budget runs
// out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/morgusai/orchestron/core"
	"github.com/morgusai/orchestron/logging"
	"github.com/morgusai/orchestron/model"
	"github.com/morgusai/orchestron/session"
	"github.com/morgusai/orchestron/tool"
)

// Defaults applied when the corresponding Option field is zero.
const (
	DefaultMaxIterations = 10
	DefaultCompressAfter = 30
	DefaultEventBuffer   = 64
)

// continueNudge is appended as a user turn when the model produced
// intermediate content without signalling completion.
const continueNudge = "Continue with the task."

// Status is the terminal state of one orchestrator run.
type Status string

const (
	// StatusComplete means the model signalled a final answer.
	StatusComplete Status = "complete"
	// StatusError means a provider error or empty response ended the run.
	StatusError Status = "error"
	// StatusMaxIterations means the iteration budget ran out first.
	StatusMaxIterations Status = "max_iterations"
)

// Outcome aggregates the result of one run. Exactly one of the three
// statuses applies; Err is set only for StatusError.
type Outcome struct {
	Status        Status
	FinalResponse string
	Iterations    int
	Usage         model.TokenUsage
	Err           error
}

// ToolExecutor runs a named tool. Satisfied by *tool.Registry and
// *tool.ResultCache.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Options tune an Orchestrator. Zero fields select defaults.
type Options struct {
	SystemPrompt     string
	MaxIterations    int
	KeepRecent       int // Messages retained verbatim by compression
	CompressAfter    int // Compress when history grows past this many messages
	MaxContextTokens int // Also compress when history exceeds this token count (0 disables)
	Temperature      float64
	MaxTokens        int64
	Formatter        tool.ResultFormatter
	Detector         CompletionDetector
	Executor         ToolExecutor // Defaults to the registry itself
	Logger           logging.Logger
	EventBuffer      int
}

// Orchestrator drives one conversation. It is a single logical thread of
// control: turns never overlap and tool calls within a turn run strictly
// sequentially. Not safe for concurrent Run calls; create one per
// conversation.
type Orchestrator struct {
	model    model.Model
	registry *tool.Registry
	exec     ToolExecutor
	opts     Options

	history    *session.History
	compressed session.Compressed
	counter    *session.TokenCounter
	actions    []string // Tool names executed, newest last
	callIndex  int      // Total tool calls so far, drives formatter rotation
}

// New creates an Orchestrator for one conversation.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		KeepRecent:    session.DefaultKeepRecent,
		CompressAfter: DefaultCompressAfter,
		EventBuffer:   DefaultEventBuffer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Formatter == nil {
		opts.Formatter = tool.NewRotatingFormatter()
	}
	if opts.Detector == nil {
		opts.Detector = NewPhraseDetector()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	o := &Orchestrator{
		model:    m,
		registry: registry,
		opts:     opts,
		history:  session.NewHistory(),
		counter:  session.NewTokenCounter(),
	}
	o.exec = opts.Executor
	if o.exec == nil {
		o.exec = registry
	}
	return o
}

// History returns a copy of the conversation log.
func (o *Orchestrator) History() []core.Message { return o.history.Messages() }

// Run starts one task and returns the event stream plus a channel that
// delivers the outcome once the loop ends. Events preserve occurrence
// order. The caller must drain the event channel.
func (o *Orchestrator) Run(ctx context.Context, task string) (<-chan core.Event, <-chan *Outcome) {
	events := make(chan core.Event, o.opts.EventBuffer)
	outcomeCh := make(chan *Outcome, 1)

	go func() {
		defer close(events)
		defer close(outcomeCh)
		outcomeCh <- o.loop(ctx, task, events)
	}()

	return events, outcomeCh
}

// RunSync runs a task to completion, discarding intermediate events.
func (o *Orchestrator) RunSync(ctx context.Context, task string) (*Outcome, error) {
	events, outcomeCh := o.Run(ctx, task)
	for range events {
	}
	outcome := <-outcomeCh
	if outcome.Err != nil {
		return outcome, outcome.Err
	}
	return outcome, nil
}

func (o *Orchestrator) loop(ctx context.Context, task string, events chan<- core.Event) *Outcome {
	runID := core.NewID()
	o.history.Append(core.NewUserMessage(task))
	o.opts.Logger.Info("agent.run.start", "run_id", runID, "max_iterations", o.opts.MaxIterations)

	usage := model.TokenUsage{}

	for iter := 1; iter <= o.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			o.emit(events, core.NewErrorEvent(runID, iter, err))
			return &Outcome{Status: StatusError, Iterations: iter - 1, Usage: usage, Err: err}
		}

		o.emit(events, core.NewStatusEvent(runID, iter, fmt.Sprintf("iteration %d started", iter)))
		o.maybeCompress()

		resp, err := o.model.Generate(ctx, o.buildRequest())
		if err != nil {
			o.opts.Logger.Error("agent.model.error", "run_id", runID, "iteration", iter, "error", err.Error())
			o.emit(events, core.NewErrorEvent(runID, iter, err))
			return &Outcome{Status: StatusError, Iterations: iter, Usage: usage, Err: err}
		}
		usage.Add(resp.Usage)

		if resp.Empty() {
			// Fatal by contract: looping on empty output would spin the
			// budget away with no progress.
			err := core.ErrNoResponse
			o.emit(events, core.NewErrorEvent(runID, iter, err))
			return &Outcome{Status: StatusError, Iterations: iter, Usage: usage, Err: err}
		}

		if len(resp.ToolCalls) > 0 {
			o.runToolCalls(ctx, runID, iter, resp, events)
			continue
		}

		// Free-form content only: candidate final answer.
		if o.opts.Detector.IsComplete(resp.Content) {
			o.history.Append(core.NewAssistantMessage(resp.Content))
			o.emit(events, core.NewResponseEvent(runID, iter, resp.Content))
			o.emit(events, core.NewCompleteEvent(runID, iter))
			o.opts.Logger.Info("agent.run.complete", "run_id", runID, "iterations", iter)
			return &Outcome{Status: StatusComplete, FinalResponse: resp.Content, Iterations: iter, Usage: usage}
		}

		o.history.Append(core.NewAssistantMessage(resp.Content))
		o.history.Append(core.NewUserMessage(continueNudge))
		o.emit(events, core.NewStatusEvent(runID, iter, "no completion signal, continuing"))
	}

	o.opts.Logger.Warn("agent.run.max_iterations", "run_id", runID, "iterations", o.opts.MaxIterations)
	o.emit(events, core.NewStatusEvent(runID, o.opts.MaxIterations, "iteration budget exhausted"))
	return &Outcome{Status: StatusMaxIterations, Iterations: o.opts.MaxIterations, Usage: usage}
}

// runToolCalls executes one turn's tool calls strictly sequentially:
// calls within a turn are assumed to have ordering dependencies.
func (o *Orchestrator) runToolCalls(ctx context.Context, runID string, iter int, resp *model.Response, events chan<- core.Event) {
	o.history.Append(core.NewToolCallMessage(resp.Content, resp.ToolCalls))

	for _, call := range resp.ToolCalls {
		o.emit(events, core.NewToolCallEvent(runID, iter, call.ID, call.Name, call.Arguments))

		var result string
		failed := false

		args, err := parseArguments(call.Arguments)
		if err != nil {
			result = fmt.Sprintf("invalid tool arguments: %v", err)
			failed = true
		} else {
			result, err = o.exec.Execute(ctx, call.Name, args)
			if err != nil {
				// Tool failures go back to the model as result content so
				// it can recover; they never abort the loop.
				result = err.Error()
				failed = true
			}
		}

		formatted := o.opts.Formatter.Format(call.Name, result, o.callIndex)
		o.callIndex++

		o.history.Append(core.NewToolMessage(call.ID, call.Name, formatted))
		o.actions = append(o.actions, call.Name)
		o.emit(events, core.NewToolResultEvent(runID, iter, call.ID, call.Name, result, failed))
	}
}

// buildRequest assembles the per-iteration model request: system prompt
// (with restoration hint when history has been compressed), current
// history, and the tool set filtered through the availability state
// machine.
func (o *Orchestrator) buildRequest() model.Request {
	state := tool.InferState(o.actions)
	avail := tool.AvailabilityFor(state)

	req := model.Request{
		System:      o.systemPrompt(),
		Messages:    o.history.Messages(),
		Tools:       o.toolDefinitions(state, avail),
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	}
	if avail.Required != "" {
		if _, ok := o.registry.Get(avail.Required); ok {
			req.RequiredTool = avail.Required
		}
	}
	return req
}

func (o *Orchestrator) systemPrompt() string {
	prompt := o.opts.SystemPrompt
	// The hint lives here, outside the compressible log, so repeated
	// compression never re-extracts references from earlier hints.
	if hint := session.RestorationHint(o.compressed); hint != "" {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += hint
	}
	return prompt
}

// toolDefinitions filters registered tools through the availability
// gating. The initial state allows every registered tool, including ones
// the state machine does not know about; other states allow only their
// available set.
func (o *Orchestrator) toolDefinitions(state tool.State, avail tool.Availability) []model.ToolDefinition {
	var defs []model.ToolDefinition
	for _, name := range o.registry.Names() {
		if avail.IsBlocked(name) {
			continue
		}
		if state != tool.StateInitial && !avail.IsAvailable(name) {
			continue
		}
		t, ok := o.registry.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

func (o *Orchestrator) maybeCompress() {
	over := o.opts.CompressAfter > 0 && o.history.Len() > o.opts.CompressAfter
	if !over && o.opts.MaxContextTokens > 0 {
		over = o.counter.CountMessages(o.history.Messages()) > o.opts.MaxContextTokens
	}
	if !over {
		return
	}

	compressed, recent := session.Compress(o.history.Messages(), o.opts.KeepRecent)
	if compressed.Empty() {
		return
	}

	o.compressed = o.compressed.Merge(compressed)
	o.history.Replace(recent)
	o.opts.Logger.Info(
		"agent.history.compressed",
		"discarded", compressed.MessageCount,
		"tool_calls", compressed.ToolCallCount,
		"retained", len(recent),
	)
}

func (o *Orchestrator) emit(events chan<- core.Event, ev core.Event) {
	events <- ev
}

// parseArguments decodes a tool call's raw argument JSON. Providers
// occasionally emit malformed JSON (truncation, stray trailing commas);
// a repair pass recovers those before giving up.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, fmt.Errorf("arguments unparsable after repair: %w", err)
	}
	return args, nil
}
