// Package executor provides a bounded-concurrency runner for batches of
// independent tasks with per-task timeout, retry and live progress.
//
// A single scheduler goroutine owns the ready queue and the running set;
// worker goroutines only ever report back on a settle channel, so task
// records have exactly one writer and no locks are needed.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/morgusai/orchestron/core"
	"github.com/morgusai/orchestron/logging"
)

// MaxBatchSize is the hard cap on inputs per call. Larger batches are
// rejected with a core.CapacityError before any task starts.
const MaxBatchSize = 2000

// Defaults applied by Run when the corresponding Config field is zero.
const (
	DefaultMaxConcurrency = 50
	DefaultTimeout        = 300 * time.Second
	DefaultMaxRetries     = 2
)

// Status is the lifecycle state of a task. Transitions are
// pending -> running -> {completed | failed}, with failed -> retrying ->
// running while retries remain.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Task is the record of one unit of work. Fields are written only by the
// scheduler goroutine; callers must not mutate a Task after submitting the
// batch.
type Task[I, R any] struct {
	ID         string
	Index      int // Position in the input batch
	Input      I
	Status     Status
	Result     R
	Err        error
	Attempts   int // Execution attempts so far (increments once per dispatch)
	Retries    int // Re-queues after failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// WorkFunc executes one task input. The context carries the per-task
// deadline; implementations should honour it but the executor also races the
// call against the deadline so a stuck work function cannot wedge the batch.
type WorkFunc[I, R any] func(ctx context.Context, input I) (R, error)

// Config tunes a Run call. The zero value selects all defaults.
type Config struct {
	MaxConcurrency   int           // Upper bound on simultaneously running tasks (default 50)
	Timeout          time.Duration // Per-task deadline (default 300s)
	RetryFailedTasks bool          // Re-queue failed tasks while retries remain
	MaxRetries       int           // Maximum re-queues per task (default 2, only used when retrying)
	ContinueOnError  bool          // Report overall success despite failed tasks
	OnProgress       func(Progress)
	Logger           logging.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Logger == nil {
		c.Logger = logging.NoOpLogger{}
	}
}

// Failure pairs a task that exhausted its retries with the error that
// finished it.
type Failure struct {
	TaskID string
	Err    error
}

// Result aggregates the outcome of a batch. It is always returned, success
// or not: task-level failures become Failures entries, never panics or
// errors thrown at the caller.
type Result[I, R any] struct {
	Success  bool          // No failures, or ContinueOnError was set
	Tasks    []*Task[I, R] // All task records, in input order
	Results  []R           // Results of completed tasks, in input order
	Failures []Failure     // One entry per task that exhausted retries
	Progress Progress      // Final progress snapshot
	Duration time.Duration
}

// settle is a worker's report back to the scheduler.
type settle[R any] struct {
	index  int
	result R
	err    error
}

// Run executes all inputs through work with bounded concurrency. It returns
// when the ready queue is empty and nothing is running. Cancelling ctx stops
// the scheduler from dispatching further tasks; tasks already running settle
// (or time out) normally.
func Run[I, R any](ctx context.Context, inputs []I, work WorkFunc[I, R], cfg Config) (*Result[I, R], error) {
	cfg.applyDefaults()

	tasks := make([]*Task[I, R], len(inputs))
	for i, in := range inputs {
		tasks[i] = &Task[I, R]{
			ID:     core.NewID(),
			Index:  i,
			Input:  in,
			Status: StatusPending,
		}
	}

	if len(inputs) > MaxBatchSize {
		// Fail fast: every task stays pending.
		return &Result[I, R]{Tasks: tasks}, &core.CapacityError{Size: len(inputs), Limit: MaxBatchSize}
	}

	start := time.Now()
	cfg.Logger.Info("executor.batch.start", "tasks", len(tasks), "max_concurrency", cfg.MaxConcurrency)

	queue := make([]int, 0, len(tasks))
	for i := range tasks {
		queue = append(queue, i)
	}

	settleCh := make(chan settle[R], cfg.MaxConcurrency)
	running := 0

	for running > 0 || len(queue) > 0 {
		// Fill free slots from the front of the queue.
		for len(queue) > 0 && running < cfg.MaxConcurrency && ctx.Err() == nil {
			idx := queue[0]
			queue = queue[1:]

			t := tasks[idx]
			t.Status = StatusRunning
			t.Attempts++
			if t.StartedAt.IsZero() {
				t.StartedAt = time.Now()
			}
			running++

			go runTask(ctx, idx, t.ID, t.Input, work, cfg.Timeout, settleCh)
		}

		if running == 0 {
			// Context cancelled with tasks still queued: leave them pending.
			break
		}

		s := <-settleCh
		running--

		t := tasks[s.index]
		switch {
		case s.err == nil:
			t.Status = StatusCompleted
			t.Result = s.result
			t.FinishedAt = time.Now()
		case cfg.RetryFailedTasks && t.Retries < cfg.MaxRetries:
			t.Retries++
			t.Status = StatusRetrying
			cfg.Logger.Warn("executor.task.retry", "task", t.ID, "attempt", t.Attempts, "error", s.err.Error())
			// Retried tasks re-enter at the back of the queue, no priority boost.
			queue = append(queue, s.index)
		default:
			t.Status = StatusFailed
			t.Err = s.err
			t.FinishedAt = time.Now()
			cfg.Logger.Error("executor.task.failed", "task", t.ID, "attempts", t.Attempts, "error", s.err.Error())
		}

		if cfg.OnProgress != nil {
			cfg.OnProgress(snapshot(tasks, start))
		}
	}

	res := &Result[I, R]{
		Tasks:    tasks,
		Progress: snapshot(tasks, start),
		Duration: time.Since(start),
	}
	for _, t := range tasks {
		switch t.Status {
		case StatusCompleted:
			res.Results = append(res.Results, t.Result)
		case StatusFailed:
			res.Failures = append(res.Failures, Failure{TaskID: t.ID, Err: t.Err})
		}
	}
	res.Success = len(res.Failures) == 0 || cfg.ContinueOnError

	cfg.Logger.Info(
		"executor.batch.complete",
		"completed", res.Progress.Completed,
		"failed", res.Progress.Failed,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

// runTask executes one attempt, racing the work call against the per-task
// deadline. A work function that ignores its context cannot block settlement:
// on expiry the attempt is reported as failed and the stray goroutine is left
// to finish on its own.
func runTask[I, R any](
	ctx context.Context,
	index int,
	taskID string,
	input I,
	work WorkFunc[I, R],
	timeout time.Duration,
	settleCh chan<- settle[R],
) {
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type attempt struct {
		result R
		err    error
	}
	done := make(chan attempt, 1)

	go func() {
		var a attempt
		defer func() {
			if r := recover(); r != nil {
				a.err = &core.TaskError{TaskID: taskID, Message: fmt.Sprintf("panic: %v", r)}
			}
			done <- a
		}()
		a.result, a.err = work(taskCtx, input)
	}()

	select {
	case a := <-done:
		if a.err != nil && !isTaskErr(a.err) {
			if errors.Is(a.err, context.DeadlineExceeded) && ctx.Err() == nil {
				// Work observed its own deadline; classify as a timeout.
				a.err = &core.TimeoutError{TaskID: taskID, Timeout: timeout}
			} else {
				a.err = &core.TaskError{TaskID: taskID, Message: a.err.Error()}
			}
		}
		settleCh <- settle[R]{index: index, result: a.result, err: a.err}
	case <-taskCtx.Done():
		var err error
		if ctx.Err() != nil {
			err = &core.TaskError{TaskID: taskID, Message: ctx.Err().Error()}
		} else {
			err = &core.TimeoutError{TaskID: taskID, Timeout: timeout}
		}
		settleCh <- settle[R]{index: index, err: err}
	}
}

func isTaskErr(err error) bool {
	switch err.(type) {
	case *core.TaskError, *core.TimeoutError:
		return true
	}
	return false
}
