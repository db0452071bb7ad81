// Package pipeline drives tool invocations from model intent to rendered
// result: argument parsing, permission negotiation, hook dispatch, execution
// and in-place status display.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Octane0411/openagent/internal/hooks"
	"github.com/Octane0411/openagent/internal/permission"
	"github.com/Octane0411/openagent/internal/render"
	"github.com/Octane0411/openagent/internal/telemetry"
	"github.com/Octane0411/openagent/internal/tool"
)

// Status is a tool call's lifecycle state. Transitions are monotonic:
// pending -> running -> completed|error. A call never moves backwards.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// rank orders statuses for the monotonic-transition guard.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusError:
		return 2
	default:
		return -1
	}
}

// ToolCall tracks one tool invocation within a turn.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	Status    Status
	Result    string
	ErrMsg    string
	StartedAt time.Time
	EndedAt   time.Time
}

// Pipeline owns the call set of the current turn. Calls from a finished turn
// are discarded, not archived, when the next turn begins.
type Pipeline struct {
	registry *tool.Registry
	perms    *permission.Negotiator
	hooks    *hooks.Dispatcher
	renderer *render.Renderer
	tracer   telemetry.Tracer
	execCtx  tool.ExecContext

	calls []*ToolCall
	index map[string]*ToolCall
}

// New builds a Pipeline. tracer may be nil; the noop tracer is substituted.
func New(registry *tool.Registry, perms *permission.Negotiator, dispatcher *hooks.Dispatcher, renderer *render.Renderer, tracer telemetry.Tracer, execCtx tool.ExecContext) *Pipeline {
	if tracer == nil {
		tracer = telemetry.NoopTracer{}
	}
	return &Pipeline{
		registry: registry,
		perms:    perms,
		hooks:    dispatcher,
		renderer: renderer,
		tracer:   tracer,
		execCtx:  execCtx,
		index:    make(map[string]*ToolCall),
	}
}

// BeginTurn discards the previous turn's calls and clears the display.
func (p *Pipeline) BeginTurn() {
	p.calls = nil
	p.index = make(map[string]*ToolCall)
	if p.renderer != nil {
		p.renderer.Clear()
	}
}

// HandleToolUse runs one tool-call intent through the full invocation flow
// and returns the finished call. The returned error mirrors the call's error
// state; the call itself always ends in completed or error.
func (p *Pipeline) HandleToolUse(ctx context.Context, toolUseID, name, argsJSON string) (*ToolCall, error) {
	call := &ToolCall{
		ID:        toolUseID,
		Name:      name,
		Arguments: parseArguments(argsJSON),
		Status:    StatusPending,
	}
	p.calls = append(p.calls, call)
	p.index[call.ID] = call
	p.refresh()

	// No externally observable queued state: run immediately.
	p.transition(call, StatusRunning)
	call.StartedAt = time.Now()
	p.refresh()

	ctx, finishSpan := p.tracer.StartToolCall(ctx, name, toolUseID)

	p.hooks.Dispatch(ctx, hooks.PreToolUse, hooks.ToolUsePayload{
		Name:      name,
		Params:    call.Arguments,
		ToolUseID: toolUseID,
	})

	decision := p.perms.Authorize(name, call.Arguments)
	if decision.Behavior == permission.BehaviorDeny {
		p.finish(call, "", fmt.Errorf("%s", decision.Message))
		finishSpan(fmt.Errorf("%s", decision.Message))
		p.dispatchPost(ctx, call)
		return call, fmt.Errorf("%s", decision.Message)
	}
	if decision.UpdatedInput != nil {
		call.Arguments = decision.UpdatedInput
	}

	output, execErr := p.execute(ctx, call)
	p.finish(call, output, execErr)
	finishSpan(execErr)
	p.dispatchPost(ctx, call)
	return call, execErr
}

// ClearDisplay erases the drawn tool block so plain assistant text can
// stream below it. The calls themselves are kept; the next status mutation
// redraws the full set.
func (p *Pipeline) ClearDisplay() {
	if p.renderer != nil {
		p.renderer.Clear()
	}
}

// Correlate returns the call created for a tool-use id in the current turn.
func (p *Pipeline) Correlate(toolUseID string) (*ToolCall, bool) {
	call, ok := p.index[toolUseID]
	return call, ok
}

// Calls returns the current turn's calls in creation order.
func (p *Pipeline) Calls() []*ToolCall {
	return p.calls
}

func (p *Pipeline) execute(ctx context.Context, call *ToolCall) (string, error) {
	t, err := p.registry.Get(call.Name)
	if err != nil {
		return "", err
	}
	res, err := t.Execute(ctx, call.Arguments, p.execCtx)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	return res.Output, nil
}

func (p *Pipeline) finish(call *ToolCall, output string, err error) {
	call.EndedAt = time.Now()
	if err != nil {
		call.ErrMsg = err.Error()
		p.transition(call, StatusError)
	} else {
		call.Result = output
		p.transition(call, StatusCompleted)
	}
	p.refresh()
}

// dispatchPost fires PostToolUse regardless of outcome.
func (p *Pipeline) dispatchPost(ctx context.Context, call *ToolCall) {
	var err error
	if call.ErrMsg != "" {
		err = fmt.Errorf("%s", call.ErrMsg)
	}
	p.hooks.Dispatch(ctx, hooks.PostToolUse, hooks.ToolResultPayload{
		Name:      call.Name,
		Params:    call.Arguments,
		ToolUseID: call.ID,
		Result:    call.Result,
		Duration:  call.EndedAt.Sub(call.StartedAt),
		Err:       err,
	})
}

// transition applies a status change, ignoring any move that would take the
// call backwards.
func (p *Pipeline) transition(call *ToolCall, next Status) {
	if next.rank() <= call.Status.rank() {
		return
	}
	call.Status = next
}

// refresh redraws the full current call set. The renderer overwrites what it
// previously drew, so every mutation re-renders everything, not just the
// mutated call.
func (p *Pipeline) refresh() {
	if p.renderer == nil {
		return
	}
	views := make([]render.Call, len(p.calls))
	for i, call := range p.calls {
		views[i] = render.Call{
			Name:    call.Name,
			Status:  render.Status(call.Status),
			Summary: summarize(call),
		}
	}
	p.renderer.Display(views)
}

func summarize(call *ToolCall) string {
	switch call.Status {
	case StatusCompleted:
		if call.Result != "" {
			return call.Result
		}
	case StatusError:
		return call.ErrMsg
	}
	for _, key := range []string{"command", "file_path", "url", "subject"} {
		if v, ok := call.Arguments[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseArguments decodes the model's JSON argument string. A string that
// fails to decode is preserved under a fallback key instead of failing the
// call outright.
func parseArguments(argsJSON string) map[string]any {
	if argsJSON == "" {
		return map[string]any{}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &parsed); err != nil || parsed == nil {
		return map[string]any{"raw": argsJSON}
	}
	return parsed
}
