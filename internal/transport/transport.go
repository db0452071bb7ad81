// Package transport streams model completions. Both providers speak the
// same small interface so the agent loop never cares which backend it is
// talking to.
package transport

import "context"

// Role identifies a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is one tool-use intent emitted by the model. ArgsJSON is the raw
// JSON argument string exactly as the model produced it; the pipeline owns
// decoding it.
type ToolCall struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ArgsJSON string `json:"args_json"`
}

// ToolResult reports one finished tool call back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// Message is one conversation entry. Assistant messages may carry tool
// calls; user messages may carry tool results.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Definition advertises a callable tool to the model.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one completion request.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Definition
	Model     string
	MaxTokens int
	SessionID string
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Reply is the assembled result of one streamed completion.
type Reply struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// Handler receives streaming events. Either callback may be nil.
type Handler struct {
	// OnTextDelta receives each assistant text fragment as it arrives.
	OnTextDelta func(delta string)
	// OnToolUse fires once per completed tool-use block.
	OnToolUse func(call ToolCall)
}

// Transport streams one completion and returns the assembled reply.
type Transport interface {
	Stream(ctx context.Context, req Request, h Handler) (*Reply, error)
}
