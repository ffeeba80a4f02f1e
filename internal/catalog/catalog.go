// Package catalog lists the tasks a priority may be bound to.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Task is an externally defined unit of work. Its instructions live with the
// task runner; only identity and availability matter here.
type Task struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Enabled     bool   `yaml:"enabled"`
}

// Catalog resolves task ids.
type Catalog interface {
	Lookup(ctx context.Context, id string) (Task, bool, error)
}

// Memory is an in-memory catalog.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemory builds a catalog from tasks. Later duplicates replace earlier ones.
func NewMemory(tasks ...Task) *Memory {
	m := &Memory{tasks: make(map[string]Task, len(tasks))}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

// Lookup returns the task with the given id.
func (m *Memory) Lookup(_ context.Context, id string) (Task, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok, nil
}

// Has reports whether id is in the catalog, enabled or not.
func (m *Memory) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tasks[id]
	return ok
}

// Put adds or replaces a task.
func (m *Memory) Put(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

// List returns all tasks sorted by id.
func (m *Memory) List() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type document struct {
	Tasks []rawTask `yaml:"tasks"`
}

// rawTask leaves Enabled unset when the file omits it, so tasks default on.
type rawTask struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Enabled     *bool  `yaml:"enabled"`
}

// Parse reads a YAML task list of the form `tasks: [{id, name, enabled}]`.
func Parse(data []byte) (*Memory, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task catalog: %w", err)
	}

	m := NewMemory()
	for i, rt := range doc.Tasks {
		if rt.ID == "" {
			return nil, fmt.Errorf("task %d: id is required", i)
		}
		if m.Has(rt.ID) {
			return nil, fmt.Errorf("task %s: duplicate id", rt.ID)
		}
		t := Task{ID: rt.ID, Name: rt.Name, Description: rt.Description, Enabled: true}
		if rt.Enabled != nil {
			t.Enabled = *rt.Enabled
		}
		m.Put(t)
	}
	return m, nil
}

// LoadFile reads a task catalog from a YAML file.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task catalog: %w", err)
	}
	return Parse(data)
}
