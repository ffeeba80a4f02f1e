// Package graph models the dependsOn relation between priorities as an
// explicit adjacency mapping. It knows nothing about priorities themselves:
// nodes are plain ids, so cycle checks work on any snapshot of edges.
package graph

import "sort"

// Edge is a dependency from one node to another: From depends on To.
type Edge struct {
	From string
	To   string
}

// Graph is an immutable dependency graph. Node order is the order nodes were
// supplied in and drives every deterministic traversal.
type Graph struct {
	order      []string
	index      map[string]int
	deps       map[string][]string // node -> nodes it depends on
	dependents map[string][]string // node -> nodes depending on it
}

// New builds a graph from a node order and a node -> dependencies mapping.
// Dependencies naming unknown nodes are kept so Dangling can report them.
func New(order []string, deps map[string][]string) *Graph {
	g := &Graph{
		order:      make([]string, 0, len(order)),
		index:      make(map[string]int, len(order)),
		deps:       make(map[string][]string, len(order)),
		dependents: make(map[string][]string, len(order)),
	}

	for _, id := range order {
		if _, exists := g.index[id]; exists {
			continue
		}
		g.index[id] = len(g.order)
		g.order = append(g.order, id)
	}

	for _, id := range g.order {
		for _, dep := range deps[id] {
			g.addEdge(id, dep)
		}
	}
	return g
}

// addEdge records that from depends on to, skipping duplicates.
func (g *Graph) addEdge(from, to string) {
	for _, existing := range g.deps[from] {
		if existing == to {
			return
		}
	}
	g.deps[from] = append(g.deps[from], to)
	g.dependents[to] = append(g.dependents[to], from)
}

// Nodes returns the node ids in construction order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// DependenciesOf returns the ids that id depends on.
func (g *Graph) DependenciesOf(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the nodes that depend on id, in node order.
func (g *Graph) Dependents(id string) []string {
	out := append([]string(nil), g.dependents[id]...)
	g.sortByOrder(out)
	return out
}

// IsSatisfied reports whether every dependency of id is in completed.
// A node with no dependencies is trivially satisfied.
func (g *Graph) IsSatisfied(id string, completed map[string]bool) bool {
	return len(g.Unmet(id, completed)) == 0
}

// Unmet returns the dependencies of id missing from completed, in the order
// they were declared.
func (g *Graph) Unmet(id string, completed map[string]bool) []string {
	var unmet []string
	for _, dep := range g.deps[id] {
		if !completed[dep] {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// Dangling returns the edges whose target is not a node of the graph.
func (g *Graph) Dangling() []Edge {
	var out []Edge
	for _, id := range g.order {
		for _, dep := range g.deps[id] {
			if !g.Has(dep) {
				out = append(out, Edge{From: id, To: dep})
			}
		}
	}
	return out
}

// WouldCreateCycle reports whether replacing the dependencies of id with
// candidate closes a cycle. The returned path starts and ends with id.
func (g *Graph) WouldCreateCycle(id string, candidate []string) ([]string, bool) {
	next := func(node string) []string {
		if node == id {
			return candidate
		}
		return g.deps[node]
	}

	visited := make(map[string]bool)
	var path []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == id {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		path = append(path, node)
		for _, n := range next(node) {
			if dfs(n) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	for _, start := range candidate {
		path = path[:0]
		if dfs(start) {
			cycle := make([]string, 0, len(path)+2)
			cycle = append(cycle, id)
			cycle = append(cycle, path...)
			return append(cycle, id), true
		}
	}
	return nil, false
}

// FindCycle searches the whole graph for a cycle and returns one, closed on
// its first node, or nil if the graph is acyclic.
func (g *Graph) FindCycle() []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // finished
	)

	color := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		stack = append(stack, node)
		for _, dep := range g.deps[node] {
			if !g.Has(dep) {
				continue
			}
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return false
	}

	for _, node := range g.order {
		if color[node] == white && dfs(node) {
			return cycle
		}
	}
	return nil
}

// TopologicalOrder returns nodes so that every node comes after all of its
// dependencies, using Kahn's algorithm with node order as tie-break.
// ok is false when a cycle prevents a complete ordering.
func (g *Graph) TopologicalOrder() (order []string, ok bool) {
	inDegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		for _, dep := range g.deps[id] {
			if g.Has(dep) {
				inDegree[id]++
			}
		}
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []string
		for _, child := range g.dependents[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = append(ready, child)
			}
		}
		queue = append(queue, ready...)
		g.sortByOrder(queue)
	}

	return order, len(order) == len(g.order)
}

func (g *Graph) sortByOrder(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return g.index[ids[i]] < g.index[ids[j]]
	})
}
