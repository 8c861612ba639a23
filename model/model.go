// Package model defines the provider-agnostic LLM contract: normalized
// requests and responses, the Model interface, a response cache and a mock
// for tests. Provider adapters live in the openai and anthropic
// subpackages.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/morgusai/orchestron/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function call request surfaced by a provider, unified
// across vendors so downstream logic needs no per-provider branching. It
// aliases core.ToolCall so responses can be recorded into history
// messages without conversion.
type ToolCall = core.ToolCall

// Request captures the normalized model input assembled by the
// orchestrator each iteration.
type Request struct {
	System       string           `json:"system,omitempty"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	RequiredTool string           `json:"required_tool,omitempty"` // Force this exact tool call this turn
	Temperature  float64          `json:"temperature,omitempty"`
	MaxTokens    int64            `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage across calls.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the complete output of one generation call. A response may
// carry free-form content, tool calls, or both; one with neither is a
// protocol violation the orchestrator treats as fatal.
type Response struct {
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        TokenUsage `json:"usage"`
}

// Empty reports whether the response carries neither content nor tool
// calls.
func (r *Response) Empty() bool {
	return r.Content == "" && len(r.ToolCalls) == 0
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the orchestrator needs to drive
// generation. Implementations must be safe for concurrent use.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// replays scripted responses in order and records every request it saw.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	script    []*Response
	errScript map[int]error // Call index -> error instead of response
	requests  []Request
	calls     int
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		errScript: make(map[int]error),
	}
}

// Enqueue appends responses to the script, replayed in order.
func (m *MockModel) Enqueue(responses ...*Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
	return m
}

// FailAt makes the call with the given zero-based index return err.
func (m *MockModel) FailAt(index int, err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errScript[index] = err
	return m
}

// Generate implements Model, replaying the script. A call past the end of
// the script returns an error so tests fail loudly on unexpected turns.
func (m *MockModel) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++
	m.requests = append(m.requests, req)

	if err, ok := m.errScript[call]; ok {
		return nil, err
	}
	if call >= len(m.script) {
		return nil, fmt.Errorf("mock model: no scripted response for call %d", call)
	}
	return m.script[call], nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// Requests returns a copy of every request seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Generate was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
