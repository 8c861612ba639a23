package core

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks instructions injected by the orchestrator.
	RoleSystem Role = "system"
	// RoleUser marks input supplied by the end user (or the phase driver).
	RoleUser Role = "user"
	// RoleAssistant marks model-generated content.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of a tool execution.
	RoleTool Role = "tool"
)

// ToolCall is one structured tool invocation requested by the model.
// Arguments is the raw JSON argument string exactly as the provider
// returned it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation history. Messages are ordered and
// append-only within a conversation; the orchestrator is the single writer.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // Calls requested in an assistant-role message
	ToolCallID string     `json:"tool_call_id,omitempty"` // Correlates a tool result with its originating call
	ToolName   string     `json:"tool_name,omitempty"`    // Name of the tool that produced a tool-role message
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// NewToolCallMessage records the tool calls requested in an assistant
// turn, alongside any free-form content that accompanied them.
func NewToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage records the outcome of a tool call as a tool-role message.
func NewToolMessage(callID, toolName, result string) Message {
	return Message{Role: RoleTool, Content: result, ToolCallID: callID, ToolName: toolName}
}

// IsToolMessage reports whether the message carries a tool execution result.
func (m Message) IsToolMessage() bool { return m.Role == RoleTool }
