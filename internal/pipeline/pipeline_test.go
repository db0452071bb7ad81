package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Octane0411/openagent/internal/hooks"
	"github.com/Octane0411/openagent/internal/permission"
	"github.com/Octane0411/openagent/internal/render"
	"github.com/Octane0411/openagent/internal/tool"
)

type fakeTool struct {
	name    string
	output  string
	err     error
	gotArgs map[string]any
}

func (f *fakeTool) Name() string             { return f.name }
func (f *fakeTool) Description() string      { return "fake tool" }
func (f *fakeTool) Schema() *tool.JSONSchema { return nil }

func (f *fakeTool) Execute(_ context.Context, params map[string]any, _ tool.ExecContext) (*tool.Result, error) {
	f.gotArgs = params
	if f.err != nil {
		return nil, f.err
	}
	return &tool.Result{Output: f.output}, nil
}

func newTestPipeline(t *testing.T, tools ...tool.Tool) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	registry := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, registry.Register(tl))
	}
	var screen bytes.Buffer
	perms := permission.NewNegotiator(strings.NewReader(""), &bytes.Buffer{}, permission.WithAllowAll())
	p := New(registry, perms, hooks.NewDispatcher(), render.NewRenderer(&screen), nil, tool.ExecContext{})
	return p, &screen
}

func TestHandleToolUseSuccess(t *testing.T) {
	ft := &fakeTool{name: "Echo", output: "done"}
	p, _ := newTestPipeline(t, ft)

	call, err := p.HandleToolUse(context.Background(), "use-1", "Echo", `{"message":"hi"}`)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, call.Status)
	require.Equal(t, "done", call.Result)
	require.Equal(t, "hi", ft.gotArgs["message"])
	require.False(t, call.EndedAt.Before(call.StartedAt))
}

func TestHandleToolUseFailure(t *testing.T) {
	ft := &fakeTool{name: "Boom", err: errors.New("exploded")}
	p, _ := newTestPipeline(t, ft)

	call, err := p.HandleToolUse(context.Background(), "use-1", "Boom", "{}")
	require.Error(t, err)
	require.Equal(t, StatusError, call.Status)
	require.Equal(t, "exploded", call.ErrMsg)
	require.Empty(t, call.Result)
}

func TestHandleToolUseUnknownTool(t *testing.T) {
	p, _ := newTestPipeline(t)

	call, err := p.HandleToolUse(context.Background(), "use-1", "Missing", "{}")
	require.Error(t, err)
	require.Equal(t, StatusError, call.Status)
	require.Contains(t, call.ErrMsg, "Missing")
}

func TestHandleToolUseMalformedArgsUseRawFallback(t *testing.T) {
	ft := &fakeTool{name: "Echo", output: "ok"}
	p, _ := newTestPipeline(t, ft)

	call, err := p.HandleToolUse(context.Background(), "use-1", "Echo", "not json at all")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, call.Status)
	require.Equal(t, "not json at all", call.Arguments["raw"])
}

func TestHandleToolUseDenied(t *testing.T) {
	ft := &fakeTool{name: "Bash", output: "ran"}
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(ft))

	perms := permission.NewNegotiator(strings.NewReader("n\n"), &bytes.Buffer{})
	p := New(registry, perms, hooks.NewDispatcher(), nil, nil, tool.ExecContext{})

	call, err := p.HandleToolUse(context.Background(), "use-1", "Bash", `{"command":"rm -rf /"}`)
	require.Error(t, err)
	require.Equal(t, StatusError, call.Status)
	require.Contains(t, call.ErrMsg, "denied")
	require.Nil(t, ft.gotArgs, "tool body must not run on deny")
}

func TestStatusNeverRegresses(t *testing.T) {
	p, _ := newTestPipeline(t)
	call := &ToolCall{Status: StatusCompleted}

	p.transition(call, StatusRunning)
	require.Equal(t, StatusCompleted, call.Status)

	p.transition(call, StatusPending)
	require.Equal(t, StatusCompleted, call.Status)

	errored := &ToolCall{Status: StatusError}
	p.transition(errored, StatusCompleted)
	require.Equal(t, StatusError, errored.Status)
}

func TestHooksFireAroundExecution(t *testing.T) {
	ft := &fakeTool{name: "Boom", err: errors.New("nope")}
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(ft))

	var events []string
	d := hooks.NewDispatcher()
	d.Register(hooks.PreToolUse, func(_ context.Context, payload any) error {
		p := payload.(hooks.ToolUsePayload)
		events = append(events, "pre:"+p.Name)
		return nil
	})
	d.Register(hooks.PostToolUse, func(_ context.Context, payload any) error {
		p := payload.(hooks.ToolResultPayload)
		events = append(events, "post:"+p.Name)
		require.Error(t, p.Err)
		return nil
	})

	perms := permission.NewNegotiator(strings.NewReader(""), &bytes.Buffer{}, permission.WithAllowAll())
	p := New(registry, perms, d, nil, nil, tool.ExecContext{})

	_, err := p.HandleToolUse(context.Background(), "use-1", "Boom", "{}")
	require.Error(t, err)
	// PostToolUse fires even when execution fails.
	require.Equal(t, []string{"pre:Boom", "post:Boom"}, events)
}

func TestRendererRefreshesOnEveryMutation(t *testing.T) {
	ft := &fakeTool{name: "Echo", output: "ok"}
	p, screen := newTestPipeline(t, ft)

	_, err := p.HandleToolUse(context.Background(), "use-1", "Echo", "{}")
	require.NoError(t, err)

	got := screen.String()
	// pending, running and completed states each trigger a redraw
	require.Contains(t, got, "○ Echo")
	require.Contains(t, got, "◐ Echo")
	require.Contains(t, got, "✓ Echo")
}

func TestBeginTurnDiscardsCalls(t *testing.T) {
	ft := &fakeTool{name: "Echo", output: "ok"}
	p, screen := newTestPipeline(t, ft)

	_, err := p.HandleToolUse(context.Background(), "use-1", "Echo", "{}")
	require.NoError(t, err)
	require.Len(t, p.Calls(), 1)

	screen.Reset()
	p.BeginTurn()
	require.Empty(t, p.Calls())
	_, found := p.Correlate("use-1")
	require.False(t, found)
	require.Contains(t, screen.String(), "\x1b[1A\x1b[2K")
}

func TestCorrelate(t *testing.T) {
	ft := &fakeTool{name: "Echo", output: "ok"}
	p, _ := newTestPipeline(t, ft)

	call, err := p.HandleToolUse(context.Background(), "use-7", "Echo", "{}")
	require.NoError(t, err)

	got, found := p.Correlate("use-7")
	require.True(t, found)
	require.Same(t, call, got)
}
