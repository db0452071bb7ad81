package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Octane0411/openagent/internal/preprocess"
)

// Metadata describes the optional YAML frontmatter of a command file.
type Metadata struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	ArgumentHint string `yaml:"argument-hint"`
	Model        string `yaml:"model"`
}

// Command is a loaded on-disk command definition. Its body may contain
// variable references and dynamic command markers, resolved when the
// command is rendered.
type Command struct {
	Name     string
	Path     string
	Metadata Metadata
	Body     string
}

// Render expands the command body against one invocation: argument
// substitution first, then dynamic command execution.
func (c *Command) Render(ctx context.Context, inv Invocation, opts preprocess.Options) string {
	return preprocess.Expand(ctx, c.Body, preprocess.Context{
		Args:         inv.Args,
		RawArguments: inv.RawArgs(),
	}, opts)
}

// LoadDir discovers command definitions under root. Each *.md file becomes a
// command named after its path relative to root, with directory separators
// collapsed to ':'. Files that fail to parse are reported but do not stop
// the scan.
func LoadDir(root string) ([]*Command, []error) {
	var cmds []*Command
	var errs []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		cmd, parseErr := parseFile(root, path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("commands: %s: %w", path, parseErr))
			return nil
		}
		cmds = append(cmds, cmd)
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		errs = append(errs, walkErr)
	}
	return cmds, errs
}

func parseFile(root, path string) (*Command, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return nil, err
	}

	name := meta.Name
	if name == "" {
		name = commandName(root, path)
	}
	if !validName(name) {
		return nil, fmt.Errorf("invalid command name %q", name)
	}
	return &Command{
		Name:     name,
		Path:     path,
		Metadata: meta,
		Body:     body,
	}, nil
}

// commandName derives "dir:file" style names from the path relative to root.
func commandName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, ".md")
	parts := strings.Split(rel, string(filepath.Separator))
	return strings.ToLower(strings.Join(parts, ":"))
}

const frontmatterSeparator = "---"

// splitFrontmatter parses an optional leading YAML frontmatter block. A file
// without a block is all body.
func splitFrontmatter(content string) (Metadata, string, error) {
	if !strings.HasPrefix(content, frontmatterSeparator+"\n") && content != frontmatterSeparator {
		return Metadata{}, strings.TrimSpace(content), nil
	}
	rest := strings.TrimPrefix(content, frontmatterSeparator+"\n")
	idx := strings.Index(rest, "\n"+frontmatterSeparator)
	if idx < 0 {
		return Metadata{}, "", errors.New("missing closing frontmatter separator")
	}
	header := rest[:idx]
	body := rest[idx+len("\n"+frontmatterSeparator):]
	body = strings.TrimPrefix(body, "\n")

	var meta Metadata
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, strings.TrimSpace(body), nil
}
