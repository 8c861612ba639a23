package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morgusai/orchestron/agent"
	"github.com/morgusai/orchestron/model"
	"github.com/morgusai/orchestron/tool"
)

type memorySource struct {
	mu       sync.Mutex
	statuses map[string]string
	results  map[string]string
	specs    []TaskSpec
	pollErr  error
}

func newMemorySource(specs ...TaskSpec) *memorySource {
	s := &memorySource{
		statuses: make(map[string]string),
		results:  make(map[string]string),
		specs:    specs,
	}
	for _, spec := range specs {
		s.statuses[spec.ID] = TaskPending
	}
	return s
}

func (s *memorySource) Pending(ctx context.Context) ([]TaskSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollErr != nil {
		err := s.pollErr
		s.pollErr = nil
		return nil, err
	}
	var pending []TaskSpec
	for _, spec := range s.specs {
		if s.statuses[spec.ID] == TaskPending {
			pending = append(pending, spec)
		}
	}
	return pending, nil
}

func (s *memorySource) UpdateStatus(ctx context.Context, id, status, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	if result != "" {
		s.results[id] = result
	}
	return nil
}

func (s *memorySource) status(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

func completingFactory() func() *agent.Orchestrator {
	return func() *agent.Orchestrator {
		m := model.NewMockModel("test").Enqueue(
			&model.Response{Content: "here is the result", FinishReason: "stop"},
		)
		return agent.New(m, tool.NewRegistry(nil))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestServiceExecutesPendingTasks(t *testing.T) {
	source := newMemorySource(
		TaskSpec{ID: "t1", Title: "first task"},
		TaskSpec{ID: "t2", Title: "second task", Description: "with detail"},
	)

	svc := New(source, completingFactory(), func(o *Options) {
		o.PollInterval = 5 * time.Millisecond
		o.MaxConcurrent = 2
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	waitFor(t, func() bool {
		return source.status("t1") == TaskCompleted && source.status("t2") == TaskCompleted
	})

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, "here is the result", source.results["t1"])
}

func TestServiceMarksFailedTasks(t *testing.T) {
	factory := func() *agent.Orchestrator {
		m := model.NewMockModel("test").FailAt(0, errors.New("provider down"))
		return agent.New(m, tool.NewRegistry(nil))
	}
	source := newMemorySource(TaskSpec{ID: "t1", Title: "doomed"})

	svc := New(source, factory, func(o *Options) {
		o.PollInterval = 5 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	waitFor(t, func() bool { return source.status("t1") == TaskFailed })

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Contains(t, source.results["t1"], "provider down")
}

func TestServiceBacksOffOnPollErrors(t *testing.T) {
	source := newMemorySource(TaskSpec{ID: "t1", Title: "eventually runs"})
	source.pollErr = errors.New("database unavailable")

	svc := New(source, completingFactory(), func(o *Options) {
		o.PollInterval = 5 * time.Millisecond
		o.ErrorBackoff = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	// First poll fails, the retry succeeds and executes the task.
	waitFor(t, func() bool { return source.status("t1") == TaskCompleted })
}

func TestServicePhasedExecution(t *testing.T) {
	factory := func() *agent.Orchestrator {
		m := model.NewMockModel("test")
		// One completing response per lifecycle phase.
		for range agent.Phases() {
			m.Enqueue(&model.Response{Content: "Phase complete.", FinishReason: "stop"})
		}
		return agent.New(m, tool.NewRegistry(nil))
	}
	source := newMemorySource(TaskSpec{ID: "t1", Title: "full lifecycle"})

	svc := New(source, factory, func(o *Options) {
		o.PollInterval = 5 * time.Millisecond
		o.Phased = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	waitFor(t, func() bool { return source.status("t1") == TaskCompleted })

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, "Phase complete.", source.results["t1"])
}

func TestTaskSpecPrompt(t *testing.T) {
	assert.Equal(t, "just a title", TaskSpec{Title: "just a title"}.Prompt())

	withBody := TaskSpec{Title: "build it", Description: "all the details"}
	require.Equal(t, "build it\n\nall the details", withBody.Prompt())
}
