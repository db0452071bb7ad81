package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Octane0411/openagent/internal/tool"
)

const (
	defaultBashTimeout = 2 * time.Minute
	maxBashTimeout     = 10 * time.Minute
	maxBashOutputLen   = 30000

	bashDescription = `Executes a bash command and returns its combined output.

Usage:
- Required: command argument.
- Optional: timeout in milliseconds (max 600000ms/10 min, default 120000ms/2 min).
- Output is truncated if it exceeds 30000 characters.
- Always quote file paths that contain spaces with double quotes.
- Chain dependent commands with '&&'; use ';' to ignore failures.`
)

var bashSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"command": map[string]any{
			"type":        "string",
			"description": "The command to execute",
		},
		"timeout": map[string]any{
			"type":        "integer",
			"description": "Optional timeout in milliseconds (max 600000)",
		},
	},
	Required: []string{"command"},
}

// BashTool runs shell commands with a bounded timeout and truncated output.
type BashTool struct{}

func NewBashTool() *BashTool { return &BashTool{} }

func (b *BashTool) Name() string { return "Bash" }

func (b *BashTool) Description() string { return bashDescription }

func (b *BashTool) Schema() *tool.JSONSchema { return bashSchema }

func (b *BashTool) Execute(ctx context.Context, params map[string]any, ec tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	command, err := requiredString(params, "command")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("command cannot be empty")
	}
	timeout, err := resolveBashTimeout(params)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "bash", "-c", command)
	cmd.Dir = ec.Cwd
	cmd.Env = mergedEnv(ec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	output := combineOutput(stdout.String(), stderr.String())
	output, truncated := truncateOutput(output, maxBashOutputLen)

	exitCode := 0
	if runErr != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s", timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run command: %w", runErr)
		}
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("command exited with code %d: %s", exitCode, output)
	}

	return &tool.Result{
		Output: output,
		Data: map[string]any{
			"exit_code":   exitCode,
			"duration_ms": elapsed.Milliseconds(),
			"truncated":   truncated,
		},
	}, nil
}

func resolveBashTimeout(params map[string]any) (time.Duration, error) {
	ms, err := optionalInt(params, "timeout", 0)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return defaultBashTimeout, nil
	}
	timeout := time.Duration(ms) * time.Millisecond
	if timeout > maxBashTimeout {
		return 0, fmt.Errorf("timeout exceeds maximum of %s", maxBashTimeout)
	}
	return timeout, nil
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func combineOutput(stdout, stderr string) string {
	stdout = strings.TrimRight(stdout, "\n")
	stderr = strings.TrimRight(stderr, "\n")
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

func truncateOutput(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	return s[:limit] + "\n... (output truncated)", true
}
