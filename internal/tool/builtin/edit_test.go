package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Octane0411/openagent/internal/tool"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEditToolSingleReplacement(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "sample.txt", "Hello World")
	edit := NewEditTool()

	res, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "Hello",
		"new_string": "Hi",
	}, tool.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Data["replacements"])

	updated, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Hi World", string(updated))
}

func TestEditToolAmbiguousLeavesFileUnmodified(t *testing.T) {
	dir := t.TempDir()
	content := "dup one dup two dup"
	path := writeFixture(t, dir, "multi.txt", content)
	edit := NewEditTool()

	_, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "dup",
		"new_string": "xxx",
	}, tool.ExecContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "appears")
	require.Contains(t, err.Error(), "times")

	unchanged, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Equal(t, content, string(unchanged))
}

func TestEditToolReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "multi.txt", "foo bar foo baz foo")
	edit := NewEditTool()

	res, err := edit.Execute(context.Background(), map[string]any{
		"file_path":   path,
		"old_string":  "foo",
		"new_string":  "xxx",
		"replace_all": true,
	}, tool.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Data["replacements"])

	updated, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Equal(t, "xxx bar xxx baz xxx", string(updated))
}

func TestEditToolMissingFile(t *testing.T) {
	edit := NewEditTool()
	_, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  filepath.Join(t.TempDir(), "absent.txt"),
		"old_string": "a",
		"new_string": "b",
	}, tool.ExecContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestEditToolOldStringNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "sample.txt", "alpha beta")
	edit := NewEditTool()

	_, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "gamma",
		"new_string": "delta",
	}, tool.ExecContext{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestEditToolResolvesRelativeToCwd(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "rel.txt", "old value")
	edit := NewEditTool()

	res, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  "rel.txt",
		"old_string": "old",
		"new_string": "new",
	}, tool.ExecContext{Cwd: dir})
	require.NoError(t, err)
	require.Equal(t, 1, res.Data["replacements"])

	updated, readErr := os.ReadFile(filepath.Join(dir, "rel.txt"))
	require.NoError(t, readErr)
	require.Equal(t, "new value", string(updated))
}

func TestEditToolRejectsIdenticalStrings(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "same.txt", "content")
	edit := NewEditTool()

	_, err := edit.Execute(context.Background(), map[string]any{
		"file_path":  path,
		"old_string": "content",
		"new_string": "content",
	}, tool.ExecContext{})
	require.Error(t, err)
}
