package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayFirstDrawEmitsNoErase(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	r.Display([]Call{
		{Name: "Bash", Status: StatusRunning, Summary: "ls"},
		{Name: "Edit", Status: StatusPending},
	})

	got := out.String()
	require.NotContains(t, got, cursorUpAndClear)
	require.Equal(t, 2, strings.Count(got, "\n"))
	require.Contains(t, got, "◐ Bash ls")
	require.Contains(t, got, "○ Edit")
}

func TestDisplayErasesPreviouslyDrawnLines(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	calls := []Call{
		{Name: "Bash", Status: StatusRunning, Summary: "ls"},
		{Name: "Edit", Status: StatusPending},
	}
	r.Display(calls)
	out.Reset()

	calls[0].Status = StatusCompleted
	r.Display(calls)

	got := out.String()
	require.Equal(t, 2, strings.Count(got, cursorUpAndClear))
	require.Contains(t, got, "✓ Bash ls")
}

func TestDisplayHandlesShrinkingCallSet(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	r.Display([]Call{
		{Name: "A", Status: StatusRunning},
		{Name: "B", Status: StatusRunning},
		{Name: "C", Status: StatusRunning},
	})
	out.Reset()

	r.Display([]Call{{Name: "A", Status: StatusCompleted}})
	got := out.String()
	require.Equal(t, 3, strings.Count(got, cursorUpAndClear))
	require.Equal(t, 1, strings.Count(got, "\n"))
}

func TestClearErasesWithoutRedraw(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out)

	r.Display([]Call{{Name: "Bash", Status: StatusError, Summary: "exit 1"}})
	out.Reset()

	r.Clear()
	require.Equal(t, 1, strings.Count(out.String(), cursorUpAndClear))

	// Nothing drawn: clear is a no-op.
	out.Reset()
	r.Clear()
	require.Empty(t, out.String())
}

func TestRenderLineTruncation(t *testing.T) {
	long := Call{Name: "Bash", Status: StatusRunning, Summary: strings.Repeat("x", 300)}
	line := renderLine(long)
	require.LessOrEqual(t, len([]rune(line)), maxLineLen)
	require.True(t, strings.HasSuffix(line, "..."))

	multi := Call{Name: "Edit", Status: StatusCompleted, Summary: "a\nb"}
	require.NotContains(t, renderLine(multi), "\n")
}
