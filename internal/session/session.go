// Package session persists conversation history as JSON files under the
// workspace, one file per session id.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Octane0411/openagent/internal/transport"
)

var ErrNotFound = errors.New("session: not found")

const storeVersion = 1

// Record is one persisted session.
type Record struct {
	Version   int                 `json:"version"`
	ID        string              `json:"id"`
	UpdatedAt time.Time           `json:"updated_at"`
	Messages  []transport.Message `json:"messages,omitempty"`
}

// Summary describes a stored session without its messages.
type Summary struct {
	ID        string
	UpdatedAt time.Time
	Messages  int
}

// Store reads and writes session files under a single directory.
type Store struct {
	dir string
}

// NewStore roots a store at dir, creating it on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Save writes the session's messages, replacing any previous content.
func (s *Store) Save(id string, msgs []transport.Message) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session: id required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}

	record := Record{
		Version:   storeVersion,
		ID:        id,
		UpdatedAt: time.Now().UTC(),
		Messages:  msgs,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	// Write-then-rename keeps a crash from truncating an existing session.
	path := s.filePath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

// Load returns the messages stored for id.
func (s *Store) Load(id string) ([]transport.Message, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: read: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return record.Messages, nil
}

// List returns summaries of all stored sessions, most recent first.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: list: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil || record.ID == "" {
			continue
		}
		out = append(out, Summary{
			ID:        record.ID,
			UpdatedAt: record.UpdatedAt,
			Messages:  len(record.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes a stored session.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.filePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *Store) filePath(id string) string {
	// Session ids are uuids; sanitize anyway so a crafted id cannot escape
	// the store directory.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return filepath.Join(s.dir, safe+".json")
}
