package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Octane0411/openagent/internal/tool"
)

func TestBashToolEcho(t *testing.T) {
	bash := NewBashTool()
	res, err := bash.Execute(context.Background(), map[string]any{
		"command": "echo hello",
	}, tool.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, "hello", res.Output)
	require.Equal(t, 0, res.Data["exit_code"])
}

func TestBashToolNonZeroExit(t *testing.T) {
	bash := NewBashTool()
	_, err := bash.Execute(context.Background(), map[string]any{
		"command": "echo oops >&2; exit 3",
	}, tool.ExecContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "code 3")
	require.Contains(t, err.Error(), "oops")
}

func TestBashToolTimeout(t *testing.T) {
	bash := NewBashTool()
	start := time.Now()
	_, err := bash.Execute(context.Background(), map[string]any{
		"command": "sleep 10",
		"timeout": 100,
	}, tool.ExecContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
	require.Less(t, time.Since(start), time.Second)
}

func TestBashToolWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	bash := NewBashTool()
	res, err := bash.Execute(context.Background(), map[string]any{
		"command": "pwd",
	}, tool.ExecContext{Cwd: dir})
	require.NoError(t, err)
	require.Contains(t, res.Output, dir)
}

func TestBashToolExtraEnv(t *testing.T) {
	bash := NewBashTool()
	res, err := bash.Execute(context.Background(), map[string]any{
		"command": "echo $CUSTOM_VAR",
	}, tool.ExecContext{Env: map[string]string{"CUSTOM_VAR": "custom-value"}})
	require.NoError(t, err)
	require.Equal(t, "custom-value", res.Output)
}

func TestBashToolRejectsEmptyCommand(t *testing.T) {
	bash := NewBashTool()
	_, err := bash.Execute(context.Background(), map[string]any{
		"command": "   ",
	}, tool.ExecContext{})
	require.Error(t, err)
}

func TestBashToolRejectsExcessiveTimeout(t *testing.T) {
	bash := NewBashTool()
	_, err := bash.Execute(context.Background(), map[string]any{
		"command": "echo hi",
		"timeout": int(maxBashTimeout.Milliseconds()) + 1,
	}, tool.ExecContext{})
	require.Error(t, err)
}

func TestTruncateOutput(t *testing.T) {
	out, truncated := truncateOutput("short", 100)
	require.False(t, truncated)
	require.Equal(t, "short", out)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	out, truncated = truncateOutput(string(long), 100)
	require.True(t, truncated)
	require.Contains(t, out, "truncated")
}
