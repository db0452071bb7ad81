package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/tool"
)

const taskCreateDescription = `Create a new task in the task store.

Use this when you want to persist a task with a required subject, an optional description, and an optional initial status (defaults to pending).`

var taskCreateSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"subject": map[string]any{
			"type":        "string",
			"description": "Short title of the task.",
			"minLength":   1,
		},
		"description": map[string]any{
			"type":        "string",
			"description": "Optional additional details for the task.",
		},
		"status": map[string]any{
			"type":        "string",
			"description": "Initial status: pending, in_progress or completed (default pending).",
		},
	},
	Required: []string{"subject"},
}

type TaskCreateTool struct {
	store *tasks.Store
}

func NewTaskCreateTool(store *tasks.Store) *TaskCreateTool {
	return &TaskCreateTool{store: store}
}

func (t *TaskCreateTool) Name() string { return "TaskCreate" }

func (t *TaskCreateTool) Description() string { return taskCreateDescription }

func (t *TaskCreateTool) Schema() *tool.JSONSchema { return taskCreateSchema }

func (t *TaskCreateTool) Execute(ctx context.Context, params map[string]any, _ tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if t == nil || t.store == nil {
		return nil, errors.New("task store is not configured")
	}
	subject, err := requiredString(params, "subject")
	if err != nil {
		return nil, err
	}
	description, err := optionalString(params, "description")
	if err != nil {
		return nil, err
	}
	status, err := optionalString(params, "status")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	created, err := t.store.Create(subject, description, tasks.Status(status))
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"taskId": created.ID,
		"status": string(created.Status),
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task result: %w", err)
	}
	return &tool.Result{
		Output: string(out),
		Data:   payload,
	}, nil
}
