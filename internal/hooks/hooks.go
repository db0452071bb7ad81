// Package hooks dispatches lifecycle events to registered observer
// callbacks. Callbacks observe and side-effect only; they cannot veto tool
// execution, and a failing callback never disturbs the pipeline.
package hooks

import (
	"context"
	"log"
	"sync"
	"time"
)

// EventType enumerates the hookable lifecycle events. The list is small and
// explicit to prevent loosely defined event names from proliferating.
type EventType string

const (
	SessionStart EventType = "SessionStart"
	SessionEnd   EventType = "SessionEnd"
	PreToolUse   EventType = "PreToolUse"
	PostToolUse  EventType = "PostToolUse"
)

// ToolUsePayload is emitted before tool execution.
type ToolUsePayload struct {
	Name      string
	Params    map[string]any
	ToolUseID string
}

// ToolResultPayload is emitted after tool execution, success or failure.
type ToolResultPayload struct {
	Name      string
	Params    map[string]any
	ToolUseID string // matches the ToolUsePayload.ToolUseID
	Result    any
	Duration  time.Duration
	Err       error
}

// SessionPayload is emitted at session boundaries.
type SessionPayload struct {
	SessionID string
	StartedAt time.Time
}

// Callback observes one event occurrence. Returned errors are logged and
// otherwise ignored.
type Callback func(ctx context.Context, payload any) error

// Dispatcher fans events out to callback groups in registration order.
type Dispatcher struct {
	mu     sync.RWMutex
	groups map[EventType][][]Callback
	logf   func(format string, args ...any)
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		groups: make(map[EventType][][]Callback),
		logf:   log.Printf,
	}
}

// Register appends a callback group for an event. Groups run in registration
// order; callbacks within a group run in slice order.
func (d *Dispatcher) Register(event EventType, callbacks ...Callback) {
	if len(callbacks) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups[event] = append(d.groups[event], callbacks)
}

// Dispatch runs every callback registered for the event, sequentially, so
// ordering side effects (a timing hook recording a start before a logging
// hook reads it) stay deterministic. Panics and errors are swallowed after
// logging; a misbehaving hook never aborts the pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, event EventType, payload any) {
	d.mu.RLock()
	groups := d.groups[event]
	d.mu.RUnlock()

	for _, group := range groups {
		for _, cb := range group {
			d.safeInvoke(ctx, event, cb, payload)
		}
	}
}

func (d *Dispatcher) safeInvoke(ctx context.Context, event EventType, cb Callback, payload any) {
	defer func() {
		if r := recover(); r != nil {
			d.logf("hooks: %s callback panicked: %v", event, r)
		}
	}()
	if err := cb(ctx, payload); err != nil {
		d.logf("hooks: %s callback error: %v", event, err)
	}
}
