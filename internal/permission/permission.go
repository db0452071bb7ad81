// Package permission gates sensitive tool calls behind an interactive
// operator prompt. Grants are session-scoped and never reset mid-session.
package permission

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Behavior is the outcome of an authorization check.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// Decision reports whether a tool call may proceed. UpdatedInput carries the
// (possibly adjusted) parameters the tool should execute with; Interrupt is
// always false because a denied call never aborts the conversation.
type Decision struct {
	Behavior     Behavior
	UpdatedInput map[string]any
	Message      string
	Interrupt    bool
}

// defaultSensitive names the tools capable of destructive or irreversible
// effects. Everything else passes without prompting.
var defaultSensitive = map[string]struct{}{
	"Bash":     {},
	"Edit":     {},
	"Write":    {},
	"WebFetch": {},
}

// Negotiator serializes interactive approval prompts for one session.
type Negotiator struct {
	mu            sync.Mutex
	in            *bufio.Reader
	out           io.Writer
	sensitive     map[string]struct{}
	alwaysAllowed map[string]struct{}
	allowAll      bool
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithAllowAll approves every call without prompting. Intended for
// non-interactive runs where a human cannot answer prompts.
func WithAllowAll() Option {
	return func(n *Negotiator) { n.allowAll = true }
}

// WithSensitiveTools replaces the default sensitive-tool set.
func WithSensitiveTools(names ...string) Option {
	return func(n *Negotiator) {
		n.sensitive = make(map[string]struct{}, len(names))
		for _, name := range names {
			n.sensitive[name] = struct{}{}
		}
	}
}

// NewNegotiator builds a Negotiator reading operator responses from in and
// writing prompts to out. A *bufio.Reader is used as-is so callers sharing
// stdin with another line reader keep a single buffer; two buffered readers
// on one stream would steal each other's lines.
func NewNegotiator(in io.Reader, out io.Writer, opts ...Option) *Negotiator {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	n := &Negotiator{
		in:            br,
		out:           out,
		sensitive:     defaultSensitive,
		alwaysAllowed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Authorize decides whether the named tool may run with the given input.
// Prompts are serialized: while one prompt is outstanding no other call can
// be authorized, so terminal input never interleaves.
func (n *Negotiator) Authorize(toolName string, input map[string]any) Decision {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.allowAll {
		return Decision{Behavior: BehaviorAllow, UpdatedInput: input}
	}
	if _, ok := n.alwaysAllowed[toolName]; ok {
		return Decision{Behavior: BehaviorAllow, UpdatedInput: input}
	}
	if _, ok := n.sensitive[toolName]; !ok {
		return Decision{Behavior: BehaviorAllow, UpdatedInput: input}
	}

	fmt.Fprintf(n.out, "\nTool %s requests permission:\n  %s\n", toolName, summarizeInput(toolName, input))
	fmt.Fprint(n.out, "Allow? [y]es once / [n]o / [a]lways: ")

	line, err := n.in.ReadString('\n')
	if err != nil && line == "" {
		return Decision{
			Behavior:  BehaviorDeny,
			Message:   fmt.Sprintf("permission prompt failed: %v", err),
			Interrupt: false,
		}
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return Decision{Behavior: BehaviorAllow, UpdatedInput: input}
	case "a", "always":
		n.alwaysAllowed[toolName] = struct{}{}
		return Decision{Behavior: BehaviorAllow, UpdatedInput: input}
	default:
		return Decision{
			Behavior:  BehaviorDeny,
			Message:   fmt.Sprintf("user denied permission for %s", toolName),
			Interrupt: false,
		}
	}
}

// AllowAlways grants blanket approval for a tool, as if the operator had
// answered "always" at a prompt.
func (n *Negotiator) AllowAlways(toolName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alwaysAllowed[toolName] = struct{}{}
}

// summarizeInput renders the most relevant input field for the prompt. Falls
// back to a compact key listing when no dedicated field applies.
func summarizeInput(toolName string, input map[string]any) string {
	pick := func(key string) (string, bool) {
		if raw, ok := input[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return s, true
			}
		}
		return "", false
	}

	switch toolName {
	case "Bash":
		if cmd, ok := pick("command"); ok {
			return "command: " + truncateSummary(cmd)
		}
	case "Edit", "Write":
		if path, ok := pick("file_path"); ok {
			return "file: " + truncateSummary(path)
		}
	case "WebFetch":
		if url, ok := pick("url"); ok {
			return "url: " + truncateSummary(url)
		}
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "(no input)"
	}
	return "input keys: " + strings.Join(keys, ", ")
}

const maxSummaryLen = 120

func truncateSummary(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxSummaryLen {
		return s
	}
	return s[:maxSummaryLen] + "..."
}
