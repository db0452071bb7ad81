package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/tool"
)

func TestTaskToolsRoundTrip(t *testing.T) {
	store := tasks.NewStore()
	create := NewTaskCreateTool(store)
	update := NewTaskUpdateTool(store)
	get := NewTaskGetTool(store)
	list := NewTaskListTool(store)
	ctx := context.Background()
	ec := tool.ExecContext{}

	res, err := create.Execute(ctx, map[string]any{
		"subject":     "write report",
		"description": "quarterly numbers",
	}, ec)
	require.NoError(t, err)
	require.Equal(t, 1, res.Data["taskId"])
	require.Equal(t, "pending", res.Data["status"])

	res, err = update.Execute(ctx, map[string]any{
		"taskId": 1,
		"status": "in_progress",
	}, ec)
	require.NoError(t, err)
	require.Equal(t, "in_progress", res.Data["status"])

	res, err = get.Execute(ctx, map[string]any{"taskId": 1}, ec)
	require.NoError(t, err)
	require.Contains(t, res.Output, "write report")

	res, err = list.Execute(ctx, nil, ec)
	require.NoError(t, err)
	require.Equal(t, 1, res.Data["count"])
}

func TestTaskCreateRequiresSubject(t *testing.T) {
	create := NewTaskCreateTool(tasks.NewStore())
	_, err := create.Execute(context.Background(), map[string]any{}, tool.ExecContext{})
	require.Error(t, err)
}

func TestTaskUpdateUnknownID(t *testing.T) {
	update := NewTaskUpdateTool(tasks.NewStore())
	_, err := update.Execute(context.Background(), map[string]any{
		"taskId": 42,
		"status": "completed",
	}, tool.ExecContext{})
	require.ErrorIs(t, err, tasks.ErrTaskNotFound)
}

func TestTaskUpdateRequiresFields(t *testing.T) {
	store := tasks.NewStore()
	_, err := store.Create("subject", "", "")
	require.NoError(t, err)

	update := NewTaskUpdateTool(store)
	_, execErr := update.Execute(context.Background(), map[string]any{"taskId": 1}, tool.ExecContext{})
	require.Error(t, execErr)
}

func TestTaskListExcludesDeleted(t *testing.T) {
	store := tasks.NewStore()
	for _, subject := range []string{"one", "two", "three"} {
		_, err := store.Create(subject, "", "")
		require.NoError(t, err)
	}
	update := NewTaskUpdateTool(store)
	_, err := update.Execute(context.Background(), map[string]any{
		"taskId": 2,
		"status": "deleted",
	}, tool.ExecContext{})
	require.NoError(t, err)

	list := NewTaskListTool(store)
	res, err := list.Execute(context.Background(), nil, tool.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Data["count"])
	require.NotContains(t, res.Output, "two")
}

func TestTaskCreateAcceptsFloatIDParams(t *testing.T) {
	store := tasks.NewStore()
	_, err := store.Create("float id", "", "")
	require.NoError(t, err)

	// JSON-decoded arguments arrive as float64.
	get := NewTaskGetTool(store)
	res, execErr := get.Execute(context.Background(), map[string]any{"taskId": float64(1)}, tool.ExecContext{})
	require.NoError(t, execErr)
	require.Equal(t, 1, res.Data["taskId"])
}
