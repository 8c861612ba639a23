package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an orchestrator lifecycle event.
type EventType string

const (
	// EventStatus reports loop progress (iteration started, budget reached, ...).
	EventStatus EventType = "status"
	// EventToolCall announces a tool invocation requested by the model.
	EventToolCall EventType = "tool_call"
	// EventToolResult carries the outcome of a tool invocation.
	EventToolResult EventType = "tool_result"
	// EventResponse carries the model's final free-form answer.
	EventResponse EventType = "response"
	// EventError reports an unrecoverable failure that terminated the loop.
	EventError EventType = "error"
	// EventComplete marks successful termination of the loop.
	EventComplete EventType = "complete"
)

// Event is the unit of communication between the orchestrator and its
// consumers. Events are emitted in strict chronological order on a channel so
// callers can stream the loop's progress without blocking on completion.
// After emission an event should be treated as immutable.
type Event struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Iteration  int       `json:"iteration,omitempty"`
	Message    string    `json:"message,omitempty"`      // status text, response content, or error message
	ToolName   string    `json:"tool_name,omitempty"`    // set for tool_call / tool_result
	ToolCallID string    `json:"tool_call_id,omitempty"` // set for tool_call / tool_result
	Arguments  string    `json:"arguments,omitempty"`    // raw argument JSON for tool_call
	IsError    bool      `json:"is_error,omitempty"`     // set on tool_result when the tool failed
}

// NewEvent creates a bare event bound to a run. Prefer the typed constructors
// below for common categories.
func NewEvent(runID string, typ EventType) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusEvent reports loop progress.
func NewStatusEvent(runID string, iteration int, msg string) Event {
	e := NewEvent(runID, EventStatus)
	e.Iteration = iteration
	e.Message = msg
	return e
}

// NewToolCallEvent announces a tool invocation requested by the model.
func NewToolCallEvent(runID string, iteration int, callID, toolName, args string) Event {
	e := NewEvent(runID, EventToolCall)
	e.Iteration = iteration
	e.ToolCallID = callID
	e.ToolName = toolName
	e.Arguments = args
	return e
}

// NewToolResultEvent records the outcome of a previously announced tool call.
func NewToolResultEvent(runID string, iteration int, callID, toolName, result string, failed bool) Event {
	e := NewEvent(runID, EventToolResult)
	e.Iteration = iteration
	e.ToolCallID = callID
	e.ToolName = toolName
	e.Message = result
	e.IsError = failed
	return e
}

// NewResponseEvent carries the model's final free-form answer.
func NewResponseEvent(runID string, iteration int, content string) Event {
	e := NewEvent(runID, EventResponse)
	e.Iteration = iteration
	e.Message = content
	return e
}

// NewErrorEvent reports the failure that terminated the loop.
func NewErrorEvent(runID string, iteration int, err error) Event {
	e := NewEvent(runID, EventError)
	e.Iteration = iteration
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// NewCompleteEvent marks successful termination of the loop.
func NewCompleteEvent(runID string, iteration int) Event {
	e := NewEvent(runID, EventComplete)
	e.Iteration = iteration
	return e
}

// NewID generates a unique identifier for events and runs.
func NewID() string { return uuid.NewString() }
