package registry

import (
	"sort"

	"github.com/andywolf/agenda/internal/graph"
	"github.com/andywolf/agenda/internal/priority"
)

// Snapshot is an immutable view of the registry at one instant. Evaluation
// works on a snapshot so authoring edits are never observed mid-turn.
type Snapshot struct {
	priorities []priority.Priority // insertion order
	index      map[string]int
	graph      *graph.Graph
}

func newSnapshot(ps []priority.Priority) *Snapshot {
	s := &Snapshot{
		priorities: ps,
		index:      make(map[string]int, len(ps)),
	}

	order := make([]string, 0, len(ps))
	deps := make(map[string][]string, len(ps))
	for i, p := range ps {
		s.index[p.ID] = i
		order = append(order, p.ID)
		deps[p.ID] = p.DependsOn
	}
	s.graph = graph.New(order, deps)
	return s
}

// Len returns the number of priorities.
func (s *Snapshot) Len() int {
	return len(s.priorities)
}

// Get returns a copy of the priority with the given id.
func (s *Snapshot) Get(id string) (priority.Priority, bool) {
	i, ok := s.index[id]
	if !ok {
		return priority.Priority{}, false
	}
	return s.priorities[i].Clone(), true
}

// Has reports whether id is registered.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// List returns copies of all priorities in insertion order.
func (s *Snapshot) List() []priority.Priority {
	out := make([]priority.Priority, len(s.priorities))
	for i, p := range s.priorities {
		out[i] = p.Clone()
	}
	return out
}

// ByWeight returns copies of all priorities ordered by weight descending.
// Ties keep insertion order.
func (s *Snapshot) ByWeight() []priority.Priority {
	out := s.List()
	SortByWeight(out)
	return out
}

// Graph returns the dependency graph of this snapshot.
func (s *Snapshot) Graph() *graph.Graph {
	return s.graph
}

// SortByWeight stable-sorts priorities by weight, highest first.
func SortByWeight(ps []priority.Priority) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Weight > ps[j].Weight
	})
}
