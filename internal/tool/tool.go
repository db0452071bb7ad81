package tool

import "context"

// ExecContext carries the ambient execution environment handed to every tool.
type ExecContext struct {
	// Cwd is the directory relative paths resolve against.
	Cwd string
	// Env holds extra environment variables for spawned processes.
	Env map[string]string
}

// Tool represents an executable capability exposed to the agent runtime.
type Tool interface {
	// Name returns the unique identifier of the tool.
	Name() string

	// Description gives a short human readable summary.
	Description() string

	// Schema describes the tool parameters. Nil means the tool does not
	// expect input.
	Schema() *JSONSchema

	// Execute runs the tool. Failures are returned as errors; the caller is
	// responsible for absorbing them into the call record.
	Execute(ctx context.Context, params map[string]any, ec ExecContext) (*Result, error)
}

// Result captures the outcome of a tool invocation.
type Result struct {
	Output string
	Data   map[string]any
}

// JSONSchema captures the subset of JSON Schema needed for tool definitions.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Map renders the schema as a plain map for transport tool definitions.
func (s *JSONSchema) Map() map[string]any {
	if s == nil {
		return map[string]any{"type": "object"}
	}
	out := map[string]any{"type": s.Type}
	if len(s.Properties) > 0 {
		out["properties"] = s.Properties
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
