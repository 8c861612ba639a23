// Package orchestron provides a high-level façade over the agent
// orchestrator, tool registry and model adapters. Most applications
// interact with this package by:
//  1. Creating an Orchestron via New() with a model
//  2. Registering tools
//  3. Starting conversations (Run) or running them to completion (RunSync)
//
// Defaults are safe for local development and testing; production
// deployments typically supply a structured logger, a result cache and
// provider-specific model adapters.
package orchestron

import (
	"context"

	"github.com/morgusai/orchestron/agent"
	"github.com/morgusai/orchestron/core"
	"github.com/morgusai/orchestron/logging"
	"github.com/morgusai/orchestron/model"
	"github.com/morgusai/orchestron/tool"
)

// Options configures the Orchestron instance.
type Options struct {
	// SystemPrompt seeds every conversation.
	SystemPrompt string

	// MaxIterations bounds each conversation's loop (default 10).
	MaxIterations int

	// CacheToolResults wraps the registry with an LRU result cache that
	// skips side-effecting tools.
	CacheToolResults bool

	// Detector decides when a free-form response is final. Defaults to
	// the phrase heuristic.
	Detector agent.CompletionDetector

	// Formatter frames tool results before they re-enter the
	// conversation. Defaults to the rotating formatter.
	Formatter tool.ResultFormatter

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Orchestron is the high-level façade aggregating the model, the tool
// registry and per-conversation orchestrators.
type Orchestron struct {
	opts     Options
	model    model.Model
	registry *tool.Registry
	exec     agent.ToolExecutor
}

// New creates an Orchestron instance backed by the given model.
func New(m model.Model, optFns ...func(o *Options)) *Orchestron {
	opts := Options{
		MaxIterations: agent.DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(opts.Logger)

	o := &Orchestron{
		opts:     opts,
		model:    m,
		registry: registry,
		exec:     registry,
	}
	if opts.CacheToolResults {
		o.exec = tool.NewResultCache(registry, tool.DefaultCacheConfig())
	}
	return o
}

// RegisterTool adds a tool available to every conversation.
func (o *Orchestron) RegisterTool(t tool.Tool) error { return o.registry.Register(t) }

// Tools returns the registered tool names in registration order.
func (o *Orchestron) Tools() []string { return o.registry.Names() }

// NewConversation creates a fresh single-threaded conversation sharing
// the instance's model and tools.
func (o *Orchestron) NewConversation(optFns ...func(ao *agent.Options)) *agent.Orchestrator {
	base := func(ao *agent.Options) {
		ao.SystemPrompt = o.opts.SystemPrompt
		ao.MaxIterations = o.opts.MaxIterations
		ao.Detector = o.opts.Detector
		ao.Formatter = o.opts.Formatter
		ao.Executor = o.exec
		ao.Logger = o.opts.Logger
	}
	return agent.New(o.model, o.registry, append([]func(*agent.Options){base}, optFns...)...)
}

// Run starts a task in a new conversation, returning the event stream and
// the outcome channel.
func (o *Orchestron) Run(ctx context.Context, task string) (<-chan core.Event, <-chan *agent.Outcome) {
	return o.NewConversation().Run(ctx, task)
}

// RunSync runs a task to completion, accumulating the emitted events.
func (o *Orchestron) RunSync(ctx context.Context, task string) (*agent.Outcome, []core.Event, error) {
	events, outcomeCh := o.Run(ctx, task)

	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}

	outcome := <-outcomeCh
	if outcome.Err != nil {
		return outcome, collected, outcome.Err
	}
	return outcome, collected, nil
}
