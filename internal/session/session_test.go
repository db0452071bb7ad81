package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Octane0411/openagent/internal/transport"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	id := NewID()

	msgs := []transport.Message{
		{Role: transport.RoleUser, Content: "hello"},
		{Role: transport.RoleAssistant, Content: "running", ToolCalls: []transport.ToolCall{
			{ID: "use-1", Name: "Bash", ArgsJSON: `{"command":"ls"}`},
		}},
		{Role: transport.RoleUser, ToolResults: []transport.ToolResult{
			{ToolUseID: "use-1", Content: "a.txt", IsError: false},
		}},
	}
	require.NoError(t, store.Save(id, msgs))

	loaded, err := store.Load(id)
	require.NoError(t, err)
	require.Equal(t, msgs, loaded)
}

func TestLoadMissingSession(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	store := NewStore(t.TempDir())
	require.Error(t, store.Save("  ", nil))
}

func TestListSortsByRecency(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save("older", []transport.Message{{Role: transport.RoleUser, Content: "1"}}))
	require.NoError(t, store.Save("newer", []transport.Message{{Role: transport.RoleUser, Content: "2"}}))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.False(t, list[0].UpdatedAt.Before(list[1].UpdatedAt))
}

func TestListEmptyDir(t *testing.T) {
	store := NewStore(t.TempDir() + "/missing")
	list, err := store.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save("gone", nil))
	require.NoError(t, store.Delete("gone"))
	require.ErrorIs(t, store.Delete("gone"), ErrNotFound)
}

func TestFilePathSanitizesID(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save("../escape", nil))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}
