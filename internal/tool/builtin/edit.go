package builtin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Octane0411/openagent/internal/tool"
)

const editDescription = `Performs exact string replacements in files.

Usage:
- The edit will FAIL if old_string is not unique in the file. Either provide a larger string with more surrounding context to make it unique or use replace_all to change every instance of old_string.
- Use replace_all for replacing and renaming strings across the file. This parameter is useful if you want to rename a variable for instance.
- ALWAYS prefer editing existing files. Never write new files unless explicitly required.`

var editSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"file_path": map[string]any{
			"type":        "string",
			"description": "Path to the file to modify, absolute or relative to the working directory",
		},
		"old_string": map[string]any{
			"type":        "string",
			"description": "The text to replace",
		},
		"new_string": map[string]any{
			"type":        "string",
			"description": "The text to replace it with (must be different from old_string)",
		},
		"replace_all": map[string]any{
			"type":        "boolean",
			"default":     false,
			"description": "Replace all occurrences of old_string (default false)",
		},
	},
	Required: []string{"file_path", "old_string", "new_string"},
}

// EditTool applies safe in-place replacements.
type EditTool struct{}

func NewEditTool() *EditTool { return &EditTool{} }

func (e *EditTool) Name() string { return "Edit" }

func (e *EditTool) Description() string { return editDescription }

func (e *EditTool) Schema() *tool.JSONSchema { return editSchema }

func (e *EditTool) Execute(ctx context.Context, params map[string]any, ec tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	rawPath, err := requiredString(params, "file_path")
	if err != nil {
		return nil, err
	}
	oldString, err := requiredString(params, "old_string")
	if err != nil {
		return nil, err
	}
	if oldString == "" {
		return nil, errors.New("old_string cannot be empty")
	}
	newString, err := requiredString(params, "new_string")
	if err != nil {
		return nil, err
	}
	if oldString == newString {
		return nil, errors.New("new_string must differ from old_string")
	}
	replaceAll, err := optionalBool(params, "replace_all")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := resolvePath(rawPath, ec.Cwd)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	content := string(raw)

	matches := strings.Count(content, oldString)
	if matches == 0 {
		return nil, fmt.Errorf("old_string not found in %s", path)
	}
	if !replaceAll && matches > 1 {
		return nil, fmt.Errorf("old_string appears %d times in %s; provide more context or set replace_all", matches, path)
	}

	replacements := matches
	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
		replacements = 1
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(updated), info.Mode()); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &tool.Result{
		Output: fmt.Sprintf("applied %d replacement(s) in %s", replacements, path),
		Data: map[string]any{
			"path":         path,
			"replacements": replacements,
			"replace_all":  replaceAll,
		},
	}, nil
}
