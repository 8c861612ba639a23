// Package tool implements the function calling subsystem: schema-validated
// tools, an ordered registry, the availability state machine that gates
// which tools each turn may use, result formatting and result caching.
package tool

import (
	"context"
	"fmt"
)

// Tool is an external capability the model can invoke by name.
//
// Implementations should provide clear snake_case names and descriptions
// (both are shown to the model), a minimal JSON-Schema-like parameter map,
// and be safe for concurrent use if shared across conversations.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments have already been parsed from JSON;
	// the result is a string fed back into the conversation.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
