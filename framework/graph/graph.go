// Package graph tracks directed dependency edges between registry keys.
//
// Every edge is indexed twice: dependencies[a] holds what a depends on and
// dependents[b] holds who depends on b. The two maps are kept as exact
// inverses and empty sets are pruned, so Len and the lookup helpers never see
// stale entries.
//
// A Graph is not safe for concurrent use; callers serialise access.
package graph

// set is a small membership set that remembers insertion order so that
// listings are deterministic.
type set[K comparable] struct {
	index map[K]int
	items []K
}

func newSet[K comparable]() *set[K] {
	return &set[K]{index: make(map[K]int)}
}

func (s *set[K]) add(k K) bool {
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, k)
	return true
}

func (s *set[K]) remove(k K) {
	i, ok := s.index[k]
	if !ok {
		return
	}
	delete(s.index, k)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
}

func (s *set[K]) has(k K) bool {
	_, ok := s.index[k]
	return ok
}

func (s *set[K]) len() int { return len(s.items) }

func (s *set[K]) list() []K {
	out := make([]K, len(s.items))
	copy(out, s.items)
	return out
}

// Graph is a directed graph of dependent → dependency edges.
type Graph[K comparable] struct {
	dependents   map[K]*set[K]
	dependencies map[K]*set[K]
}

// New returns an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{
		dependents:   make(map[K]*set[K]),
		dependencies: make(map[K]*set[K]),
	}
}

// Bind records that dependent needs dependency. Binding the same pair twice
// is a no-op; Bind reports whether a new edge was added.
func (g *Graph[K]) Bind(dependent, dependency K) bool {
	deps, ok := g.dependencies[dependent]
	if !ok {
		deps = newSet[K]()
		g.dependencies[dependent] = deps
	}
	if !deps.add(dependency) {
		return false
	}

	users, ok := g.dependents[dependency]
	if !ok {
		users = newSet[K]()
		g.dependents[dependency] = users
	}
	users.add(dependent)
	return true
}

// ClearEdgesFor removes k from both sides of every edge it takes part in.
func (g *Graph[K]) ClearEdgesFor(k K) {
	if deps, ok := g.dependencies[k]; ok {
		for _, d := range deps.items {
			g.unlink(g.dependents, d, k)
		}
		delete(g.dependencies, k)
	}
	if users, ok := g.dependents[k]; ok {
		for _, u := range users.items {
			g.unlink(g.dependencies, u, k)
		}
		delete(g.dependents, k)
	}
}

func (g *Graph[K]) unlink(side map[K]*set[K], owner, k K) {
	s, ok := side[owner]
	if !ok {
		return
	}
	s.remove(k)
	if s.len() == 0 {
		delete(side, owner)
	}
}

// Dependents returns the keys that declared a dependency on k, in bind order.
func (g *Graph[K]) Dependents(k K) []K {
	if s, ok := g.dependents[k]; ok {
		return s.list()
	}
	return nil
}

// Dependencies returns the keys k declared a dependency on, in bind order.
func (g *Graph[K]) Dependencies(k K) []K {
	if s, ok := g.dependencies[k]; ok {
		return s.list()
	}
	return nil
}

// HasEdge reports whether dependent → dependency is recorded.
func (g *Graph[K]) HasEdge(dependent, dependency K) bool {
	s, ok := g.dependencies[dependent]
	return ok && s.has(dependency)
}

// HasDependents reports whether anything depends on k.
func (g *Graph[K]) HasDependents(k K) bool {
	_, ok := g.dependents[k]
	return ok
}

// Len returns the number of edges.
func (g *Graph[K]) Len() int {
	n := 0
	for _, s := range g.dependencies {
		n += s.len()
	}
	return n
}

// Reset drops every edge.
func (g *Graph[K]) Reset() {
	g.dependents = make(map[K]*set[K])
	g.dependencies = make(map[K]*set[K])
}
