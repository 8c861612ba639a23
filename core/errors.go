package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoResponse is returned when the model produced neither content nor tool
// calls. It is fatal for the conversation loop and never retried: looping
// silently on empty output would burn the iteration budget with no signal.
var ErrNoResponse = errors.New("model returned neither content nor tool calls")

// CapacityError rejects a batch that exceeds the executor's hard input cap.
// It is a synchronous precondition failure raised before any task starts.
type CapacityError struct {
	Size  int // Submitted batch size
	Limit int // Maximum accepted batch size
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("batch of %d inputs exceeds capacity limit of %d", e.Size, e.Limit)
}

// TimeoutError marks a task whose work call did not settle within its deadline.
type TimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s timed out after %s", e.TaskID, e.Timeout)
}

// TaskError wraps a failure returned (or panicked) by a task's work function.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// ProviderError wraps a failed model provider call. It terminates the current
// conversation loop immediately and surfaces as an error event.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("provider %s call failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider call failed: %v", e.Err)
}

// Unwrap exposes the underlying provider failure for errors.Is / errors.As.
func (e *ProviderError) Unwrap() error { return e.Err }
