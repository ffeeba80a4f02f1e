// Package store persists an agent's priority set. Every backend validates the
// whole set before writing and replaces it atomically.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/andywolf/agenda/internal/priority"
	"github.com/andywolf/agenda/internal/registry"
)

// Store loads and saves the priorities of one agent at a time.
type Store interface {
	Load(ctx context.Context, agentID string) ([]priority.Priority, error)
	Save(ctx context.Context, agentID string, ps []priority.Priority) error
	// Agents lists the agent ids the store holds priorities for, sorted.
	Agents(ctx context.Context) ([]string, error)
}

// DocumentVersion is written to every file document.
const DocumentVersion = "1"

// Document is the on-disk representation of an agent's priorities.
type Document struct {
	Version    string              `json:"version" yaml:"version" toml:"version"`
	Agent      string              `json:"agent" yaml:"agent" toml:"agent"`
	Priorities []priority.Priority `json:"priorities" yaml:"priorities" toml:"priorities"`
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the store for the configured backend.
func Open(backend, path string, format Format) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(path, format), nil
	case BackendSQLite:
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// LoadRegistry loads an agent's priorities into a new registry.
func LoadRegistry(ctx context.Context, s Store, agentID string, opts ...registry.Option) (*registry.Registry, error) {
	ps, err := s.Load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return registry.NewFrom(ps, opts...)
}

// Reload replaces the registry contents with the stored set. On error the
// registry keeps its previous contents.
func Reload(ctx context.Context, s Store, agentID string, r *registry.Registry) error {
	ps, err := s.Load(ctx, agentID)
	if err != nil {
		return err
	}
	if err := r.Replace(ps); err != nil {
		return fmt.Errorf("failed to apply stored priorities: %w", err)
	}
	return nil
}

func validateAgent(agentID string) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if strings.ContainsAny(agentID, `/\`) || agentID == "." || agentID == ".." {
		return fmt.Errorf("invalid agent id %q", agentID)
	}
	return nil
}
