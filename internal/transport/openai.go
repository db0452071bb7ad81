package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
)

const (
	defaultOpenAIModel     = "gpt-4o"
	defaultOpenAIMaxTokens = 4096
	defaultOpenAIRetries   = 3
)

// OpenAIConfig configures the OpenAI-backed Transport.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
}

type openaiCompletions interface {
	NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

type openaiTransport struct {
	completions openaiCompletions
	model       string
	maxTokens   int
	maxRetries  int
}

// NewOpenAI builds a Transport over the chat completions API.
func NewOpenAI(cfg OpenAIConfig) (Transport, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("transport: openai api key required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultOpenAIRetries
	}

	return &openaiTransport{
		completions: &client.Chat.Completions,
		model:       model,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
	}, nil
}

// toolCallAccumulator merges the incremental tool-call fragments of one
// streamed choice index.
type toolCallAccumulator struct {
	id        string
	name      string
	arguments strings.Builder
}

func (a *toolCallAccumulator) toToolCall() *ToolCall {
	if a.id == "" || a.name == "" {
		return nil
	}
	return &ToolCall{
		ID:       a.id,
		Name:     a.name,
		ArgsJSON: a.arguments.String(),
	}
}

func (t *openaiTransport) Stream(ctx context.Context, req Request, h Handler) (*Reply, error) {
	var reply *Reply
	err := t.doWithRetry(ctx, func(ctx context.Context) error {
		params := t.buildParams(req)
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}

		stream := t.completions.NewStreaming(ctx, params)
		if stream == nil {
			return errors.New("transport: openai stream not available")
		}
		defer stream.Close()

		var (
			content      strings.Builder
			calls        = make(map[int]*toolCallAccumulator)
			usage        Usage
			finishReason string
		)

		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				usage = Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:  int(chunk.Usage.TotalTokens),
				}
			}
			for _, choice := range chunk.Choices {
				if choice.FinishReason != "" {
					finishReason = string(choice.FinishReason)
				}
				if choice.Delta.Content != "" {
					content.WriteString(choice.Delta.Content)
					if h.OnTextDelta != nil {
						h.OnTextDelta(choice.Delta.Content)
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					idx := int(tc.Index)
					acc, ok := calls[idx]
					if !ok {
						acc = &toolCallAccumulator{}
						calls[idx] = acc
					}
					if tc.ID != "" {
						acc.id = tc.ID
					}
					if tc.Function.Name != "" {
						acc.name = tc.Function.Name
					}
					acc.arguments.WriteString(tc.Function.Arguments)
				}
			}
		}
		if err := stream.Err(); err != nil {
			return err
		}

		// Emit tool calls in choice-index order so they replay in the order
		// the model produced them.
		indices := make([]int, 0, len(calls))
		for idx := range calls {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		var toolCalls []ToolCall
		for _, idx := range indices {
			if call := calls[idx].toToolCall(); call != nil {
				toolCalls = append(toolCalls, *call)
				if h.OnToolUse != nil {
					h.OnToolUse(*call)
				}
			}
		}

		reply = &Reply{
			Content:    content.String(),
			ToolCalls:  toolCalls,
			StopReason: finishReason,
			Usage:      usage,
		}
		return nil
	})
	return reply, err
}

func (t *openaiTransport) buildParams(req Request) openai.ChatCompletionNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = t.maxTokens
	}
	model := req.Model
	if model == "" {
		model = t.model
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(model),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Messages:            convertMessagesToOpenAI(req.System, req.Messages),
	}
	for _, def := range req.Tools {
		tool := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       def.Name,
				Parameters: shared.FunctionParameters(def.InputSchema),
			},
		}
		if def.Description != "" {
			tool.Function.Description = openai.String(def.Description)
		}
		params.Tools = append(params.Tools, tool)
	}
	if req.SessionID != "" {
		params.User = openai.String(req.SessionID)
	}
	return params
}

func convertMessagesToOpenAI(system string, msgs []Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(system) != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, msg := range msgs {
		switch msg.Role {
		case RoleAssistant:
			out = append(out, assistantMessageToOpenAI(msg))
		case RoleUser:
			if len(msg.ToolResults) > 0 {
				for _, res := range msg.ToolResults {
					out = append(out, openai.ToolMessage(res.Content, res.ToolUseID))
				}
				continue
			}
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func assistantMessageToOpenAI(msg Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	for _, call := range msg.ToolCalls {
		if call.ID == "" || call.Name == "" {
			continue
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: call.ArgsJSON,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func (t *openaiTransport) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := 0
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isOpenAIRetryable(err) || attempts >= t.maxRetries {
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

func isOpenAIRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode != http.StatusUnauthorized
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}
