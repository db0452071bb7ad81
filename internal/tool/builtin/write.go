package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Octane0411/openagent/internal/tool"
)

const writeDescription = `Writes a file to the local filesystem.

Usage:
- This tool will overwrite the existing file if there is one at the provided path.
- ALWAYS prefer editing existing files. Never write new files unless explicitly required.
- NEVER proactively create documentation files (*.md) or README files unless explicitly requested.`

var writeSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"file_path": map[string]any{
			"type":        "string",
			"description": "Path to the file to write, absolute or relative to the working directory",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "The content to write to the file",
		},
	},
	Required: []string{"file_path", "content"},
}

// WriteTool writes whole files, creating parent directories as needed.
type WriteTool struct{}

func NewWriteTool() *WriteTool { return &WriteTool{} }

func (w *WriteTool) Name() string { return "Write" }

func (w *WriteTool) Description() string { return writeDescription }

func (w *WriteTool) Schema() *tool.JSONSchema { return writeSchema }

func (w *WriteTool) Execute(ctx context.Context, params map[string]any, ec tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rawPath, err := requiredString(params, "file_path")
	if err != nil {
		return nil, err
	}
	content, err := requiredString(params, "content")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := resolvePath(rawPath, ec.Cwd)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &tool.Result{
		Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		Data: map[string]any{
			"path":  path,
			"bytes": len(content),
		},
	}, nil
}
