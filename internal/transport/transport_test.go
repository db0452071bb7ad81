package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropic(AnthropicConfig{})
	require.Error(t, err)

	tr, err := NewAnthropic(AnthropicConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, tr)
}

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	require.Error(t, err)

	tr, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, tr)
}

func TestConvertMessagesRejectsUnknownRole(t *testing.T) {
	_, err := convertMessages([]Message{{Role: "system", Content: "x"}})
	require.Error(t, err)
}

func TestConvertMessagesToolResultsBecomeBlocks(t *testing.T) {
	msgs, err := convertMessages([]Message{
		{Role: RoleUser, Content: "run it"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "use-1", Name: "Bash", ArgsJSON: `{"command":"ls"}`}}},
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "use-1", Content: "file.txt"}}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
}

func TestToolUseInputPreservesRawArguments(t *testing.T) {
	raw := toolUseInput(`{"command":"ls"}`)
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"command":"ls"}`, string(data))

	fallback := toolUseInput("not json")
	data, err = json.Marshal(fallback)
	require.NoError(t, err)
	require.JSONEq(t, `{"raw":"not json"}`, string(data))

	empty := toolUseInput("")
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(data))
}

func TestEncodeSchemaDefaultsToObject(t *testing.T) {
	schema, err := encodeSchema(nil)
	require.NoError(t, err)
	require.Equal(t, "object", string(schema.Type))

	schema, err = encodeSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"url": map[string]any{"type": "string"}},
		"required":   []any{"url"},
	})
	require.NoError(t, err)
	require.Equal(t, "object", string(schema.Type))
	require.Contains(t, schema.Properties, "url")
}

func TestToolCallAccumulator(t *testing.T) {
	acc := &toolCallAccumulator{}
	require.Nil(t, acc.toToolCall())

	acc.id = "call-1"
	acc.name = "Edit"
	acc.arguments.WriteString(`{"file_`)
	acc.arguments.WriteString(`path":"a.go"}`)

	call := acc.toToolCall()
	require.NotNil(t, call)
	require.Equal(t, `{"file_path":"a.go"}`, call.ArgsJSON)
}

func TestConvertMessagesToOpenAIOrdering(t *testing.T) {
	out := convertMessagesToOpenAI("be helpful", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "calling tool", ToolCalls: []ToolCall{{ID: "c1", Name: "Bash", ArgsJSON: "{}"}}},
		{Role: RoleUser, ToolResults: []ToolResult{{ToolUseID: "c1", Content: "done"}}},
	})
	// system + user + assistant + one tool message
	require.Len(t, out, 4)
}
