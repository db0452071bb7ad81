package hooks

import (
	"context"
	"log"
	"sync"
	"time"
)

// durationVisibilityThreshold suppresses timing output for calls that finish
// too quickly to be worth surfacing.
const durationVisibilityThreshold = 100 * time.Millisecond

// RegisterBuiltins wires the standard observer hooks: session boundary
// logging, per-tool timing, and query surfacing for search-style tools.
func RegisterBuiltins(d *Dispatcher) {
	RegisterSessionLogging(d, log.Printf)
	RegisterTiming(d, log.Printf)
	RegisterQueryLogging(d, log.Printf)
}

// RegisterSessionLogging logs session start and end.
func RegisterSessionLogging(d *Dispatcher, logf func(format string, args ...any)) {
	d.Register(SessionStart, func(_ context.Context, payload any) error {
		if p, ok := payload.(SessionPayload); ok {
			logf("session %s started", p.SessionID)
		}
		return nil
	})
	d.Register(SessionEnd, func(_ context.Context, payload any) error {
		if p, ok := payload.(SessionPayload); ok {
			logf("session %s ended after %s", p.SessionID, time.Since(p.StartedAt).Round(time.Millisecond))
		}
		return nil
	})
}

// RegisterTiming captures a start time per tool-use id on PreToolUse and logs
// the elapsed duration on PostToolUse. Durations under the visibility
// threshold are suppressed.
func RegisterTiming(d *Dispatcher, logf func(format string, args ...any)) {
	var mu sync.Mutex
	starts := make(map[string]time.Time)

	d.Register(PreToolUse, func(_ context.Context, payload any) error {
		p, ok := payload.(ToolUsePayload)
		if !ok {
			return nil
		}
		mu.Lock()
		starts[p.ToolUseID] = time.Now()
		mu.Unlock()
		return nil
	})

	d.Register(PostToolUse, func(_ context.Context, payload any) error {
		p, ok := payload.(ToolResultPayload)
		if !ok {
			return nil
		}
		mu.Lock()
		start, found := starts[p.ToolUseID]
		delete(starts, p.ToolUseID)
		mu.Unlock()

		elapsed := p.Duration
		if found && elapsed == 0 {
			elapsed = time.Since(start)
		}
		if elapsed < durationVisibilityThreshold {
			return nil
		}
		logf("tool %s took %s", p.Name, elapsed.Round(time.Millisecond))
		return nil
	})
}

// RegisterQueryLogging surfaces the query or URL of search-style tool calls
// before they execute.
func RegisterQueryLogging(d *Dispatcher, logf func(format string, args ...any)) {
	d.Register(PreToolUse, func(_ context.Context, payload any) error {
		p, ok := payload.(ToolUsePayload)
		if !ok || p.Name != "WebFetch" {
			return nil
		}
		if url, ok := p.Params["url"].(string); ok && url != "" {
			logf("fetching %s", url)
		}
		return nil
	})
}
