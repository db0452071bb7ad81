package preprocess

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCommandTimeout bounds each embedded command when Options does not
// override it.
const DefaultCommandTimeout = 5 * time.Second

// dynamicMarkerPrefix introduces an embedded command: !`cmd`.
const dynamicMarkerPrefix = "!`"

// Context supplies the substitution sources for Expand.
type Context struct {
	// Args are the positional arguments referenced as $1..$n.
	Args []string
	// Env resolves ${NAME} references.
	Env map[string]string
	// RawArguments replaces $ARGUMENTS verbatim. When empty, Args joined
	// with spaces is used instead.
	RawArguments string
}

// Options tunes how embedded commands are executed.
type Options struct {
	CommandTimeout time.Duration
	WorkDir        string
}

var (
	positionalRe = regexp.MustCompile(`\$(\d+)`)
	namedRe      = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// Expand resolves variable references and !`cmd` markers in content. It never
// fails: a command that exits non-zero or overruns its timeout is replaced by
// a bracketed [Command failed: ...] marker and the rest of the document is
// processed normally. Commands run concurrently but their output is assembled
// in input order.
func Expand(ctx context.Context, content string, pctx Context, opts Options) string {
	expanded := substituteVariables(content, pctx)
	return substituteCommands(ctx, expanded, pctx, opts)
}

func substituteVariables(content string, pctx Context) string {
	if !strings.Contains(content, "$") {
		return content
	}

	raw := pctx.RawArguments
	if raw == "" {
		raw = strings.Join(pctx.Args, " ")
	}
	out := strings.ReplaceAll(content, "$ARGUMENTS", raw)

	out = positionalRe.ReplaceAllStringFunc(out, func(match string) string {
		idx, err := strconv.Atoi(match[1:])
		if err != nil || idx <= 0 || idx > len(pctx.Args) {
			return ""
		}
		return pctx.Args[idx-1]
	})

	if len(pctx.Env) > 0 {
		out = namedRe.ReplaceAllStringFunc(out, func(match string) string {
			name := match[2 : len(match)-1]
			if value, ok := pctx.Env[name]; ok {
				return value
			}
			return match
		})
	}
	return out
}

// segment is either literal text or a command awaiting its output.
type segment struct {
	text    string
	command string
}

func substituteCommands(ctx context.Context, content string, pctx Context, opts Options) string {
	segments := splitSegments(content)

	hasCommand := false
	for _, seg := range segments {
		if seg.command != "" {
			hasCommand = true
			break
		}
	}
	if !hasCommand {
		return content
	}

	// Resolve every command concurrently; each result lands in its own slot
	// so the assembled output keeps input order regardless of completion
	// order.
	results := make([]string, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		if seg.command == "" {
			continue
		}
		wg.Add(1)
		go func(idx int, command string) {
			defer wg.Done()
			results[idx] = runCommand(ctx, command, pctx, opts)
		}(i, seg.command)
	}
	wg.Wait()

	var sb strings.Builder
	for i, seg := range segments {
		if seg.command == "" {
			sb.WriteString(seg.text)
			continue
		}
		sb.WriteString(results[i])
	}
	return sb.String()
}

// splitSegments scans content left to right for !`cmd` markers. A marker with
// no closing backtick is left as literal text.
func splitSegments(content string) []segment {
	var segments []segment
	rest := content
	for {
		start := strings.Index(rest, dynamicMarkerPrefix)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+len(dynamicMarkerPrefix):], "`")
		if end < 0 {
			break
		}
		end += start + len(dynamicMarkerPrefix)

		if start > 0 {
			segments = append(segments, segment{text: rest[:start]})
		}
		segments = append(segments, segment{command: rest[start+len(dynamicMarkerPrefix) : end]})
		rest = rest[end+1:]
	}
	if rest != "" {
		segments = append(segments, segment{text: rest})
	}
	return segments
}

func runCommand(ctx context.Context, command string, pctx Context, opts Options) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}

	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "bash", "-c", command)
	cmd.Dir = opts.WorkDir
	cmd.Env = mergedEnv(pctx.Env)

	out, err := cmd.Output()
	if err != nil {
		return "[Command failed: " + failureReason(execCtx, err, timeout) + "]"
	}
	return trimTrailingNewline(string(out))
}

func failureReason(ctx context.Context, err error, timeout time.Duration) string {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.Error()
	}
	return err.Error()
}

// trimTrailingNewline removes exactly one trailing newline; interior
// whitespace is preserved as produced by the command.
func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}
