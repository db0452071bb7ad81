package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/tool"
)

const taskGetDescription = `Fetch a single task by id, including its subject, description and status.`

var taskGetSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"taskId": map[string]any{
			"type":        "integer",
			"description": "Id of the task to fetch.",
		},
	},
	Required: []string{"taskId"},
}

type TaskGetTool struct {
	store *tasks.Store
}

func NewTaskGetTool(store *tasks.Store) *TaskGetTool {
	return &TaskGetTool{store: store}
}

func (t *TaskGetTool) Name() string { return "TaskGet" }

func (t *TaskGetTool) Description() string { return taskGetDescription }

func (t *TaskGetTool) Schema() *tool.JSONSchema { return taskGetSchema }

func (t *TaskGetTool) Execute(ctx context.Context, params map[string]any, _ tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if t == nil || t.store == nil {
		return nil, errors.New("task store is not configured")
	}
	id, err := requiredInt(params, "taskId")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	task, err := t.store.Get(id)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return &tool.Result{
		Output: string(out),
		Data: map[string]any{
			"taskId": task.ID,
			"status": string(task.Status),
		},
	}, nil
}
