// Package render draws tool-call status lines in place. Tool status changes
// after its line has already been printed, and a terminal stream can only
// rewrite flushed lines by explicit cursor movement, so every redraw first
// erases what was previously drawn. This package is the only place allowed
// to emit cursor control sequences.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Call is the renderer's view of one tool invocation.
type Call struct {
	Name    string
	Status  Status
	Summary string
}

// Status is a drawable call state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

const (
	// cursorUpAndClear moves up one line and erases it.
	cursorUpAndClear = "\x1b[1A\x1b[2K"

	maxLineLen = 100
)

// Renderer redraws an ordered call list over its previous output.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	drawn int
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Display erases the previously drawn block and redraws the full call list.
// Callers always pass the complete current set, not just the mutated call.
func (r *Renderer) Display(calls []Call) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for i := 0; i < r.drawn; i++ {
		b.WriteString(cursorUpAndClear)
	}
	for _, call := range calls {
		b.WriteString(renderLine(call))
		b.WriteByte('\n')
	}
	fmt.Fprint(r.out, b.String())
	r.drawn = len(calls)
}

// Clear erases the drawn block without redrawing. Used when switching from
// tool display back to plain assistant text.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, strings.Repeat(cursorUpAndClear, r.drawn))
	r.drawn = 0
}

func renderLine(call Call) string {
	line := fmt.Sprintf("%s %s", glyph(call.Status), call.Name)
	if call.Summary != "" {
		line += " " + call.Summary
	}
	return truncateLine(line)
}

func glyph(status Status) string {
	switch status {
	case StatusPending:
		return "○"
	case StatusRunning:
		return "◐"
	case StatusCompleted:
		return "✓"
	case StatusError:
		return "✗"
	default:
		return "?"
	}
}

func truncateLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLineLen {
		return s
	}
	return string(runes[:maxLineLen-3]) + "..."
}
