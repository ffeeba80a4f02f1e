// Package registry holds the validated set of priorities configured for one
// agent. It owns identity and uniqueness, rejects structural errors before
// they are stored and publishes copy-on-write snapshots for evaluation.
package registry

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andywolf/agenda/internal/priority"
)

// TaskChecker reports whether a task id is known to the task catalog.
type TaskChecker func(taskID string) bool

// Option configures a Registry.
type Option func(*Registry)

// WithTaskChecker rejects priorities linking tasks the checker does not know.
func WithTaskChecker(fn TaskChecker) Option {
	return func(r *Registry) {
		r.tasks = fn
	}
}

// Registry is safe for concurrent use. Mutations are serialised and publish
// a new Snapshot atomically; readers never block writers.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	tasks   TaskChecker
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name               *string
	Description        *string
	Weight             *int
	Triggers           *[]string
	RequiredData       *[]string
	DependsOn          *[]string
	Guard              *priority.Guard
	ClearGuard         bool
	TaskID             *string
	CompletionCriteria *string
	Actions            *[]priority.Action
	Enabled            *bool
	ExecuteOnce        *bool
}

// UpdateResult describes the outcome of Update.
type UpdateResult struct {
	Priority priority.Priority

	// CriteriaCleared is true when setting a task id discarded existing
	// completion criteria; ClearedCriteria holds the discarded text.
	CriteriaCleared bool
	ClearedCriteria string
}

// RemoveResult describes the outcome of Remove.
type RemoveResult struct {
	Removed priority.Priority

	// Detached lists the priorities whose DependsOn lost the removed id.
	Detached []string
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(newSnapshot(nil))
	return r
}

// NewFrom creates a registry holding ps, validated as a whole.
func NewFrom(ps []priority.Priority, opts ...Option) (*Registry, error) {
	r := New(opts...)
	if err := r.Replace(ps); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// List returns all priorities in insertion order.
func (r *Registry) List() []priority.Priority {
	return r.Snapshot().List()
}

// ByWeight returns all priorities ordered by weight descending, ties in
// insertion order.
func (r *Registry) ByWeight() []priority.Priority {
	return r.Snapshot().ByWeight()
}

// Get returns the priority with the given id.
func (r *Registry) Get(id string) (priority.Priority, error) {
	p, ok := r.Snapshot().Get(id)
	if !ok {
		return priority.Priority{}, &priority.NotFoundError{ID: id}
	}
	return p, nil
}

// Len returns the number of registered priorities.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// Add registers a new priority.
func (r *Registry) Add(p priority.Priority) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	p = normalize(p.Clone())

	if cur.Has(p.ID) {
		return &priority.DuplicateIDError{ID: p.ID}
	}
	if err := r.check(cur, p); err != nil {
		return err
	}

	next := append(cur.List(), p)
	r.current.Store(newSnapshot(next))
	return nil
}

// Update applies patch to the priority with the given id. Setting a non-empty
// task id clears the completion criteria; the discarded text is reported in
// the result.
func (r *Registry) Update(id string, patch Patch) (UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	p, ok := cur.Get(id)
	if !ok {
		return UpdateResult{}, &priority.NotFoundError{ID: id}
	}

	settingTask := patch.TaskID != nil && *patch.TaskID != ""
	if settingTask && patch.CompletionCriteria != nil && *patch.CompletionCriteria != "" {
		return UpdateResult{}, &priority.MutuallyExclusiveFieldError{ID: id, TaskID: *patch.TaskID}
	}

	apply(&p, patch)

	var result UpdateResult
	if settingTask && p.CompletionCriteria != "" {
		result.CriteriaCleared = true
		result.ClearedCriteria = p.CompletionCriteria
		p.CompletionCriteria = ""
	}

	p = normalize(p)
	if err := r.check(cur, p); err != nil {
		return UpdateResult{}, err
	}

	next := cur.List()
	next[cur.index[id]] = p
	r.current.Store(newSnapshot(next))

	result.Priority = p.Clone()
	return result, nil
}

// Remove deletes the priority with the given id and strips it from every
// other priority's DependsOn.
func (r *Registry) Remove(id string) (RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	removed, ok := cur.Get(id)
	if !ok {
		return RemoveResult{}, &priority.NotFoundError{ID: id}
	}

	result := RemoveResult{Removed: removed}
	next := make([]priority.Priority, 0, cur.Len()-1)
	for _, p := range cur.List() {
		if p.ID == id {
			continue
		}
		if deps := withoutID(p.DependsOn, id); len(deps) != len(p.DependsOn) {
			p.DependsOn = deps
			result.Detached = append(result.Detached, p.ID)
		}
		next = append(next, p)
	}

	r.current.Store(newSnapshot(next))
	return result, nil
}

// Replace validates ps as a whole and swaps it in atomically. On error the
// registry is unchanged.
func (r *Registry) Replace(ps []priority.Priority) error {
	next := make([]priority.Priority, len(ps))
	for i, p := range ps {
		next[i] = normalize(p.Clone())
	}
	if err := validateSet(next, r.tasks); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current.Store(newSnapshot(next))
	return nil
}

// check validates p against the snapshot it is about to join.
func (r *Registry) check(cur *Snapshot, p priority.Priority) error {
	if err := priority.Validate(p); err != nil {
		return err
	}
	for _, dep := range p.DependsOn {
		if !cur.Has(dep) {
			return &priority.DanglingDependencyError{ID: p.ID, Missing: dep}
		}
	}
	if path, cyclic := cur.Graph().WouldCreateCycle(p.ID, p.DependsOn); cyclic {
		return &priority.CyclicDependencyError{ID: p.ID, Path: path}
	}
	if r.tasks != nil && p.TaskID != "" && !r.tasks(p.TaskID) {
		return &priority.UnknownTaskError{ID: p.ID, TaskID: p.TaskID}
	}
	return nil
}

// Validate checks a complete priority set: every record on its own, unique
// ids, no dangling references and an acyclic dependency graph.
func Validate(ps []priority.Priority) error {
	return validateSet(ps, nil)
}

func validateSet(ps []priority.Priority, tasks TaskChecker) error {
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if err := priority.Validate(p); err != nil {
			return err
		}
		if seen[p.ID] {
			return &priority.DuplicateIDError{ID: p.ID}
		}
		seen[p.ID] = true
		if tasks != nil && p.TaskID != "" && !tasks(p.TaskID) {
			return &priority.UnknownTaskError{ID: p.ID, TaskID: p.TaskID}
		}
	}

	g := newSnapshot(ps).Graph()
	if dangling := g.Dangling(); len(dangling) > 0 {
		return &priority.DanglingDependencyError{ID: dangling[0].From, Missing: dangling[0].To}
	}
	if cycle := g.FindCycle(); cycle != nil {
		return &priority.CyclicDependencyError{ID: cycle[0], Path: cycle}
	}
	return nil
}

func apply(p *priority.Priority, patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Triggers != nil {
		p.Triggers = append([]string(nil), (*patch.Triggers)...)
	}
	if patch.RequiredData != nil {
		p.RequiredData = append([]string(nil), (*patch.RequiredData)...)
	}
	if patch.DependsOn != nil {
		p.DependsOn = append([]string(nil), (*patch.DependsOn)...)
	}
	if patch.ClearGuard {
		p.Guard = nil
	} else if patch.Guard != nil {
		g := priority.Priority{Guard: patch.Guard}.Clone().Guard
		p.Guard = g
	}
	if patch.TaskID != nil {
		p.TaskID = *patch.TaskID
	}
	if patch.CompletionCriteria != nil {
		p.CompletionCriteria = *patch.CompletionCriteria
	}
	if patch.Actions != nil {
		p.Actions = priority.Priority{Actions: *patch.Actions}.Clone().Actions
	}
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
	if patch.ExecuteOnce != nil {
		p.ExecuteOnce = *patch.ExecuteOnce
	}
}

// normalize trims trigger phrases and drops repeated ones, keeping the first
// occurrence.
func normalize(p priority.Priority) priority.Priority {
	if len(p.Triggers) == 0 {
		return p
	}
	seen := make(map[string]bool, len(p.Triggers))
	triggers := make([]string, 0, len(p.Triggers))
	for _, t := range p.Triggers {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t != "" && seen[key] {
			continue
		}
		seen[key] = true
		triggers = append(triggers, t)
	}
	p.Triggers = triggers
	return p
}

func withoutID(ids []string, id string) []string {
	if len(ids) == 0 {
		return ids
	}
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
