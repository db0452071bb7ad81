package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrNotCommand = errors.New("commands: input is not a slash command")

// Invocation is a parsed slash-command line.
type Invocation struct {
	Name  string
	Args  []string
	Flags map[string]string
	Raw   string
}

// Flag retrieves a flag value.
func (i Invocation) Flag(name string) (string, bool) {
	if i.Flags == nil {
		return "", false
	}
	val, ok := i.Flags[strings.ToLower(name)]
	return val, ok
}

// RawArgs returns everything after the command name, unsplit. Command bodies
// substitute this for their arguments marker.
func (i Invocation) RawArgs() string {
	rest := strings.TrimPrefix(i.Raw, "/"+i.Name)
	return strings.TrimSpace(rest)
}

// Parse interprets a line beginning with '/' as a command invocation. Quoted
// arguments and --flag syntax are supported.
func Parse(input string) (Invocation, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return Invocation{}, ErrNotCommand
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return Invocation{}, err
	}
	if len(tokens) == 0 {
		return Invocation{}, ErrNotCommand
	}
	name := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	if !validName(name) {
		return Invocation{}, fmt.Errorf("commands: invalid name %q", tokens[0])
	}

	inv := Invocation{Name: name, Raw: trimmed, Flags: map[string]string{}}
	for i := 1; i < len(tokens); i++ {
		token := tokens[i]
		if !strings.HasPrefix(token, "--") {
			inv.Args = append(inv.Args, token)
			continue
		}
		key, value, hasValue := splitFlag(token)
		if key == "" {
			return Invocation{}, fmt.Errorf("commands: invalid flag %q", token)
		}
		if !hasValue && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
			value = tokens[i+1]
			i++
		}
		if value == "" {
			value = "true"
		}
		inv.Flags[strings.ToLower(key)] = value
	}
	if len(inv.Flags) == 0 {
		inv.Flags = nil
	}
	return inv, nil
}

func splitFlag(token string) (key, value string, hasValue bool) {
	trimmed := strings.TrimPrefix(token, "--")
	if idx := strings.Index(trimmed, "="); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx]), trimmed[idx+1:], true
	}
	return strings.TrimSpace(trimmed), "", false
}

func lex(line string) ([]string, error) {
	var tokens []string
	var buf strings.Builder
	var quote rune
	escaped := false
	emit := func() {
		if buf.Len() > 0 {
			tokens = append(tokens, buf.String())
			buf.Reset()
		}
	}
	for _, r := range line {
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			buf.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
		case unicode.IsSpace(r):
			emit()
		default:
			buf.WriteRune(r)
		}
	}
	if escaped {
		return nil, errors.New("commands: dangling escape")
	}
	if quote != 0 {
		return nil, errors.New("commands: unclosed quote")
	}
	emit()
	return tokens, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
