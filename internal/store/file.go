package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

// Format is a file document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseFormat converts a config value into a Format. Empty means YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown store format %q (want yaml, json or toml)", s)
}

// Ext returns the file extension for f, with the dot.
func (f Format) Ext() string {
	if f == "" {
		return ".yaml"
	}
	return "." + string(f)
}

// FileStore keeps one document per agent in a directory.
type FileStore struct {
	dir    string
	format Format
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, format Format) *FileStore {
	if format == "" {
		format = FormatYAML
	}
	return &FileStore{dir: dir, format: format}
}

// Path returns the document path for an agent.
func (s *FileStore) Path(agentID string) string {
	return filepath.Join(s.dir, agentID+s.format.Ext())
}

// Load reads an agent's priorities. A missing document is an empty set.
func (s *FileStore) Load(ctx context.Context, agentID string) ([]priority.Priority, error) {
	if err := validateAgent(agentID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.Path(agentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read priorities: %w", err)
	}

	doc, err := Decode(raw, s.format)
	if err != nil {
		return nil, err
	}
	if err := registry.Validate(doc.Priorities); err != nil {
		return nil, fmt.Errorf("stored priorities are invalid: %w", err)
	}
	return doc.Priorities, nil
}

// Agents lists the agents with a document in the store directory. A missing
// directory holds no agents.
func (s *FileStore) Agents(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	ext := s.format.Ext()
	var agents []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		agents = append(agents, strings.TrimSuffix(name, ext))
	}
	sort.Strings(agents)
	return agents, nil
}

// Save validates ps and writes it atomically: the document is written to a
// temporary file in the same directory and renamed over the old one.
func (s *FileStore) Save(ctx context.Context, agentID string, ps []priority.Priority) error {
	if err := validateAgent(agentID); err != nil {
		return err
	}
	if err := registry.Validate(ps); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := Encode(Document{Version: DocumentVersion, Agent: agentID, Priorities: ps}, s.format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+agentID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write priorities: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync priorities: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(agentID)); err != nil {
		return fmt.Errorf("failed to replace priorities: %w", err)
	}
	return nil
}

// Encode serializes a document.
func Encode(doc Document, format Format) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch format {
	case FormatYAML, "":
		raw, err = yaml.Marshal(doc)
	case FormatJSON:
		raw, err = json.MarshalIndent(doc, "", "  ")
		raw = append(raw, '\n')
	case FormatTOML:
		raw, err = toml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unknown store format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", format, err)
	}
	return raw, nil
}

// Decode parses a document.
func Decode(raw []byte, format Format) (Document, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatYAML, "":
		err = yaml.Unmarshal(raw, &doc)
	case FormatJSON:
		err = json.Unmarshal(raw, &doc)
	case FormatTOML:
		err = toml.Unmarshal(raw, &doc)
	default:
		return doc, fmt.Errorf("unknown store format %q", format)
	}
	if err != nil {
		return doc, fmt.Errorf("failed to parse %s document: %w", format, err)
	}
	return doc, nil
}
