package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-20250514"
	defaultAnthropicMaxTokens = 8192
	defaultAnthropicRetries   = 3
)

// AnthropicConfig configures the Anthropic-backed Transport.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

type anthropicMessages interface {
	NewStreaming(ctx context.Context, params anthropicsdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[anthropicsdk.MessageStreamEventUnion]
}

type anthropicTransport struct {
	msgs       anthropicMessages
	model      string
	maxTokens  int
	maxRetries int
}

// NewAnthropic builds a Transport over the Anthropic messages API.
func NewAnthropic(cfg AnthropicConfig) (Transport, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("transport: anthropic api key required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropicsdk.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultAnthropicRetries
	}

	return &anthropicTransport{
		msgs:       &client.Messages,
		model:      model,
		maxTokens:  maxTokens,
		maxRetries: maxRetries,
	}, nil
}

func (t *anthropicTransport) Stream(ctx context.Context, req Request, h Handler) (*Reply, error) {
	var reply *Reply
	err := t.doWithRetry(ctx, func(ctx context.Context) error {
		params, err := t.buildParams(req)
		if err != nil {
			return err
		}

		stream := t.msgs.NewStreaming(ctx, params)
		if stream == nil {
			return errors.New("transport: anthropic stream not available")
		}
		defer stream.Close()

		var final anthropicsdk.Message
		var toolCalls []ToolCall

		for stream.Next() {
			event := stream.Current()
			if err := final.Accumulate(event); err != nil {
				return fmt.Errorf("accumulate stream: %w", err)
			}

			switch ev := event.AsAny().(type) {
			case anthropicsdk.ContentBlockDeltaEvent:
				if text := ev.Delta.AsTextDelta().Text; text != "" && h.OnTextDelta != nil {
					h.OnTextDelta(text)
				}
			case anthropicsdk.ContentBlockStopEvent:
				if call := lastToolUse(final); call != nil {
					toolCalls = append(toolCalls, *call)
					if h.OnToolUse != nil {
						h.OnToolUse(*call)
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return err
		}

		reply = &Reply{
			Content:    textContent(final),
			ToolCalls:  toolCalls,
			StopReason: string(final.StopReason),
			Usage: Usage{
				InputTokens:  int(final.Usage.InputTokens),
				OutputTokens: int(final.Usage.OutputTokens),
				TotalTokens:  int(final.Usage.InputTokens + final.Usage.OutputTokens),
			},
		}
		return nil
	})
	return reply, err
}

func (t *anthropicTransport) buildParams(req Request) (anthropicsdk.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = t.maxTokens
	}
	model := req.Model
	if model == "" {
		model = t.model
	}

	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	for _, def := range req.Tools {
		schema, err := encodeSchema(def.InputSchema)
		if err != nil {
			return anthropicsdk.MessageNewParams{}, fmt.Errorf("tool %s schema: %w", def.Name, err)
		}
		tool := anthropicsdk.ToolParam{Name: def.Name, InputSchema: schema}
		if def.Description != "" {
			tool.Description = anthropicsdk.String(def.Description)
		}
		params.Tools = append(params.Tools, anthropicsdk.ToolUnionParam{OfTool: &tool})
	}
	return params, nil
}

func convertMessages(msgs []Message) ([]anthropicsdk.MessageParam, error) {
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			out = append(out, anthropicsdk.NewUserMessage(userBlocks(msg)...))
		case RoleAssistant:
			out = append(out, anthropicsdk.NewAssistantMessage(assistantBlocks(msg)...))
		default:
			return nil, fmt.Errorf("transport: unsupported role %q", msg.Role)
		}
	}
	return out, nil
}

func userBlocks(msg Message) []anthropicsdk.ContentBlockParamUnion {
	if len(msg.ToolResults) == 0 {
		return []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(msg.Content)}
	}
	blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, len(msg.ToolResults))
	for _, res := range msg.ToolResults {
		blocks = append(blocks, anthropicsdk.NewToolResultBlock(res.ToolUseID, res.Content, res.IsError))
	}
	return blocks
}

func assistantBlocks(msg Message) []anthropicsdk.ContentBlockParamUnion {
	blocks := make([]anthropicsdk.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
	if strings.TrimSpace(msg.Content) != "" {
		blocks = append(blocks, anthropicsdk.NewTextBlock(msg.Content))
	}
	for _, call := range msg.ToolCalls {
		if call.ID == "" || call.Name == "" {
			continue
		}
		blocks = append(blocks, anthropicsdk.NewToolUseBlock(call.ID, toolUseInput(call.ArgsJSON), call.Name))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropicsdk.NewTextBlock("."))
	}
	return blocks
}

// toolUseInput round-trips the raw argument string so the API sees the
// arguments the model originally produced.
func toolUseInput(argsJSON string) any {
	if strings.TrimSpace(argsJSON) == "" {
		return map[string]any{}
	}
	if !json.Valid([]byte(argsJSON)) {
		return map[string]any{"raw": argsJSON}
	}
	return json.RawMessage(argsJSON)
}

func encodeSchema(raw map[string]any) (anthropicsdk.ToolInputSchemaParam, error) {
	if len(raw) == 0 {
		return anthropicsdk.ToolInputSchemaParam{Type: "object"}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	var schema anthropicsdk.ToolInputSchemaParam
	if err := json.Unmarshal(data, &schema); err != nil {
		return anthropicsdk.ToolInputSchemaParam{}, err
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema, nil
}

// lastToolUse extracts the tool call from the most recently closed content
// block, if that block was a tool_use block.
func lastToolUse(msg anthropicsdk.Message) *ToolCall {
	if len(msg.Content) == 0 {
		return nil
	}
	block := msg.Content[len(msg.Content)-1]
	if block.Type != "tool_use" || block.ID == "" || block.Name == "" {
		return nil
	}
	return &ToolCall{
		ID:       block.ID,
		Name:     block.Name,
		ArgsJSON: string(block.Input),
	}
}

func textContent(msg anthropicsdk.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "")
}

func (t *anthropicTransport) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := 0
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(err) || attempts >= t.maxRetries {
			return err
		}
		attempts++
		backoff := time.Duration(attempts*attempts) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode != http.StatusUnauthorized
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}
