// Package agent runs the conversation loop: stream a completion, execute
// any tool calls through the pipeline, feed results back, repeat until the
// model stops calling tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Octane0411/openagent/internal/pipeline"
	"github.com/Octane0411/openagent/internal/telemetry"
	"github.com/Octane0411/openagent/internal/transport"
)

const defaultMaxIterations = 25

// ErrMaxIterations stops a turn when the model keeps calling tools without
// converging.
var ErrMaxIterations = errors.New("agent: max tool iterations reached")

// Options configures an Agent.
type Options struct {
	System        string
	Model         string
	MaxTokens     int
	MaxIterations int
	SessionID     string
	Tracer        telemetry.Tracer
}

// Agent owns one conversation.
type Agent struct {
	transport transport.Transport
	pipeline  *pipeline.Pipeline
	tools     []transport.Definition
	out       io.Writer
	opts      Options

	messages []transport.Message
}

// New builds an Agent. out receives streamed assistant text.
func New(tr transport.Transport, pl *pipeline.Pipeline, tools []transport.Definition, out io.Writer, opts Options) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NoopTracer{}
	}
	return &Agent{
		transport: tr,
		pipeline:  pl,
		tools:     tools,
		out:       out,
		opts:      opts,
	}
}

// Messages returns the conversation history.
func (a *Agent) Messages() []transport.Message {
	return a.messages
}

// SetMessages replaces the history, e.g. when resuming a stored session.
func (a *Agent) SetMessages(msgs []transport.Message) {
	a.messages = msgs
}

// Run processes one user turn to completion.
func (a *Agent) Run(ctx context.Context, userInput string) error {
	ctx, endTurn := a.opts.Tracer.StartTurn(ctx, a.opts.SessionID)
	defer endTurn()

	a.pipeline.BeginTurn()
	a.messages = append(a.messages, transport.Message{
		Role:    transport.RoleUser,
		Content: userInput,
	})

	for iteration := 0; iteration < a.opts.MaxIterations; iteration++ {
		// Assistant text streams below any tool block drawn by the previous
		// iteration. Erase it first so the renderer's line accounting stays
		// anchored at the cursor; the next status change redraws every call.
		a.pipeline.ClearDisplay()

		reply, err := a.transport.Stream(ctx, transport.Request{
			System:    a.opts.System,
			Messages:  a.messages,
			Tools:     a.tools,
			Model:     a.opts.Model,
			MaxTokens: a.opts.MaxTokens,
			SessionID: a.opts.SessionID,
		}, transport.Handler{
			OnTextDelta: a.writeText,
		})
		if err != nil {
			return fmt.Errorf("agent: stream: %w", err)
		}

		a.messages = append(a.messages, transport.Message{
			Role:      transport.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})

		if len(reply.ToolCalls) == 0 {
			fmt.Fprintln(a.out)
			return nil
		}

		if reply.Content != "" {
			// Terminate the streamed text line before the tool block draws.
			fmt.Fprintln(a.out)
		}

		results := make([]transport.ToolResult, 0, len(reply.ToolCalls))
		for _, tc := range reply.ToolCalls {
			call, _ := a.pipeline.HandleToolUse(ctx, tc.ID, tc.Name, tc.ArgsJSON)
			result := transport.ToolResult{ToolUseID: tc.ID}
			if call.Status == pipeline.StatusError {
				result.Content = call.ErrMsg
				result.IsError = true
			} else {
				result.Content = call.Result
			}
			results = append(results, result)
		}
		a.messages = append(a.messages, transport.Message{
			Role:        transport.RoleUser,
			ToolResults: results,
		})
	}
	return ErrMaxIterations
}

func (a *Agent) writeText(delta string) {
	fmt.Fprint(a.out, delta)
}
