// Package service runs the orchestrator as a long-lived worker: it polls
// a task source for pending tasks, executes each through a fresh
// conversation, and reports results back to the source.
package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/morgusai/orchestron/agent"
	"github.com/morgusai/orchestron/logging"
)

// Task lifecycle states as stored by the source.
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
)

// Defaults applied by New when the corresponding Options field is zero.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultErrorBackoff  = 10 * time.Second
	DefaultMaxConcurrent = 4
)

// TaskSpec is one unit of work fetched from the source.
type TaskSpec struct {
	ID          string
	Title       string
	Description string
}

// Prompt renders the task as the opening user turn.
func (t TaskSpec) Prompt() string {
	if t.Description == "" {
		return t.Title
	}
	return t.Title + "\n\n" + t.Description
}

// Source supplies pending tasks and records their outcomes. A database,
// a queue, or an in-memory stub in tests.
type Source interface {
	// Pending returns tasks ready for execution.
	Pending(ctx context.Context) ([]TaskSpec, error)

	// UpdateStatus records a task's new lifecycle state, with the final
	// response (or error text) once terminal.
	UpdateStatus(ctx context.Context, id, status, result string) error
}

// Options tune a Service.
type Options struct {
	PollInterval  time.Duration // Delay between successful polls
	ErrorBackoff  time.Duration // Delay after a failed poll
	MaxConcurrent int           // Tasks executed in parallel per poll
	Phased        bool          // Run each task through the full phase lifecycle
	Logger        logging.Logger
}

// Service polls a Source and executes its tasks. Each task gets a fresh
// Orchestrator from the factory; conversations are never shared.
type Service struct {
	source  Source
	factory func() *agent.Orchestrator
	opts    Options
}

// New creates a Service.
func New(source Source, factory func() *agent.Orchestrator, optFns ...func(o *Options)) *Service {
	opts := Options{
		PollInterval:  DefaultPollInterval,
		ErrorBackoff:  DefaultErrorBackoff,
		MaxConcurrent: DefaultMaxConcurrent,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Service{source: source, factory: factory, opts: opts}
}

// Run polls until ctx is cancelled. Poll errors back off and retry; task
// failures are recorded on the source and never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	s.opts.Logger.Info("service.start", "poll_interval", s.opts.PollInterval.String())

	for {
		tasks, err := s.source.Pending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.opts.Logger.Error("service.poll.error", "error", err.Error())
			if err := s.sleep(ctx, s.opts.ErrorBackoff); err != nil {
				return err
			}
			continue
		}

		if len(tasks) > 0 {
			s.executeBatch(ctx, tasks)
		}

		if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
}

// executeBatch runs one poll's tasks with bounded parallelism. Workers
// only return ctx errors, so a failing task never cancels its siblings.
func (s *Service) executeBatch(ctx context.Context, tasks []TaskSpec) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrent)

	for _, task := range tasks {
		g.Go(func() error {
			s.executeTask(ctx, task)
			return ctx.Err()
		})
	}

	// Worker errors are only ctx cancellation; Run's next poll sees it.
	_ = g.Wait()
}

func (s *Service) executeTask(ctx context.Context, task TaskSpec) {
	logger := s.opts.Logger
	logger.Info("service.task.start", "task", task.ID)

	if err := s.source.UpdateStatus(ctx, task.ID, TaskRunning, ""); err != nil {
		logger.Error("service.task.claim_failed", "task", task.ID, "error", err.Error())
		return
	}

	outcome, err := s.runTask(ctx, task)

	status := TaskCompleted
	result := ""
	switch {
	case err != nil:
		status = TaskFailed
		result = err.Error()
		logger.Error("service.task.failed", "task", task.ID, "error", err.Error())
	case outcome.Status == agent.StatusMaxIterations:
		// Partial work, surfaced as failed so operators can requeue.
		status = TaskFailed
		result = "iteration budget exhausted"
		logger.Warn("service.task.budget_exhausted", "task", task.ID)
	default:
		result = outcome.FinalResponse
		logger.Info("service.task.complete", "task", task.ID, "iterations", outcome.Iterations)
	}

	if err := s.source.UpdateStatus(ctx, task.ID, status, result); err != nil {
		logger.Error("service.task.report_failed", "task", task.ID, "error", err.Error())
	}
}

// runTask executes the task in a fresh conversation, either as one loop
// or through the research-to-finalize phase lifecycle. Phased runs report
// the final phase's outcome.
func (s *Service) runTask(ctx context.Context, task TaskSpec) (*agent.Outcome, error) {
	if !s.opts.Phased {
		return s.factory().RunSync(ctx, task.Prompt())
	}
	results, err := s.factory().RunPhases(ctx, task.Prompt())
	if err != nil {
		return nil, err
	}
	return results[len(results)-1].Outcome, nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
