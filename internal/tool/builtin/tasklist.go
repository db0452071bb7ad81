package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/tool"
)

const taskListDescription = `List all tasks in creation order. Tasks whose status is deleted are omitted.`

var taskListSchema = &tool.JSONSchema{
	Type:       "object",
	Properties: map[string]any{},
}

type TaskListTool struct {
	store *tasks.Store
}

func NewTaskListTool(store *tasks.Store) *TaskListTool {
	return &TaskListTool{store: store}
}

func (t *TaskListTool) Name() string { return "TaskList" }

func (t *TaskListTool) Description() string { return taskListDescription }

func (t *TaskListTool) Schema() *tool.JSONSchema { return taskListSchema }

func (t *TaskListTool) Execute(ctx context.Context, _ map[string]any, _ tool.ExecContext) (*tool.Result, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if t == nil || t.store == nil {
		return nil, errors.New("task store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list := t.store.List()
	out, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return &tool.Result{
		Output: string(out),
		Data: map[string]any{
			"count": len(list),
		},
	}, nil
}
