package commands

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Octane0411/openagent/internal/preprocess"
)

// Executor resolves slash-command invocations against the loaded command
// set. Commands render to prompt text which the caller feeds to the model.
type Executor struct {
	mu   sync.RWMutex
	root string
	cmds map[string]*Command
	opts preprocess.Options
}

// NewExecutor loads commands from root. Load errors are logged and skipped;
// a missing directory simply yields an empty command set.
func NewExecutor(root string, opts preprocess.Options) *Executor {
	e := &Executor{
		root: root,
		cmds: make(map[string]*Command),
		opts: opts,
	}
	e.Reload()
	return e
}

// Reload rescans the command directory, replacing the active set.
func (e *Executor) Reload() {
	cmds, errs := LoadDir(e.root)
	for _, err := range errs {
		log.Printf("commands: load: %v", err)
	}

	next := make(map[string]*Command, len(cmds))
	for _, cmd := range cmds {
		if _, dup := next[cmd.Name]; dup {
			log.Printf("commands: duplicate name %q, keeping first", cmd.Name)
			continue
		}
		next[cmd.Name] = cmd
	}

	e.mu.Lock()
	e.cmds = next
	e.mu.Unlock()
}

// Run renders the named command's body for one invocation.
func (e *Executor) Run(ctx context.Context, inv Invocation) (string, error) {
	e.mu.RLock()
	cmd, ok := e.cmds[inv.Name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("commands: unknown command %q", inv.Name)
	}
	return cmd.Render(ctx, inv, e.opts), nil
}

// Get returns the named command.
func (e *Executor) Get(name string) (*Command, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cmd, ok := e.cmds[name]
	return cmd, ok
}

// List returns the loaded commands sorted by name.
func (e *Executor) List() []*Command {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Command, 0, len(e.cmds))
	for _, cmd := range e.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
