package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/tool"
)

const taskUpdateDescription = `Update fields on an existing task.

Provide the task id plus any of subject, description or status. Setting status to deleted removes the task from listings without discarding it.`

var taskUpdateSchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]any{
		"taskId": map[string]any{
			"type":        "integer",
			"description": "Id of the task to update.",
		},
		"subject": map[string]any{
			"type":        "string",
			"description": "New subject for the task.",
		},
		"description": map[string]any{
			"type":        "string",
			"description": "New description for the task.",
		},
		"status": map[string]any{
			"type":        "string",
			"description": "New status: pending, in_progress, completed or deleted.",
		},
	},
	Required: []string{"taskId"},
}

type TaskUpdateTool struct {
	store *tasks.Store
}

func NewTaskUpdateTool(store *tasks.Store) *TaskUpdateTool {
	return &TaskUpdateTool{store: store}
}

func (t *TaskUpdateTool) Name() string { return "TaskUpdate" }

func (t *TaskUpdateTool) Description() string { return taskUpdateDescription }

func (t *TaskUpdateTool) Schema() *tool.JSONSchema { return taskUpdateSchema }

func (t *TaskUpdateTool) Execute(ctx context.Context, params map[string]any, _ tool.ExecContext) (*tool.Result, error) {
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

	var updates tasks.TaskUpdate
	if raw, ok := params["subject"]; ok && raw != nil {
		subject, err := coerceString(raw)
		if err != nil {
			return nil, fmt.Errorf("subject must be a string: %w", err)
		}
		updates.Subject = &subject
	}
	if raw, ok := params["description"]; ok && raw != nil {
		description, err := coerceString(raw)
		if err != nil {
			return nil, fmt.Errorf("description must be a string: %w", err)
		}
		updates.Description = &description
	}
	if raw, ok := params["status"]; ok && raw != nil {
		value, err := coerceString(raw)
		if err != nil {
			return nil, fmt.Errorf("status must be a string: %w", err)
		}
		status := tasks.Status(value)
		updates.Status = &status
	}
	if updates.Subject == nil && updates.Description == nil && updates.Status == nil {
		return nil, errors.New("no fields to update")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated, err := t.store.Update(id, updates)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"taskId": updated.ID,
		"status": string(updated.Status),
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
