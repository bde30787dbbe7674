package dependency

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/km-arc/go-dipend/framework/errs"
)

// Edge points from a consumer to one of its constructor arguments.
type Edge struct {
	From string
	To   string
}

// Store owns every registration and the dependency-first order derived from
// them. The order is cached until the next mutation.
type Store struct {
	mu            sync.RWMutex
	registrations map[string]*Registration
	order         []string // ids in first-registration order

	sorted  []string
	stale   bool
	rebuild int // number of sort computations, for tests
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		registrations: make(map[string]*Registration),
		stale:         true,
	}
}

// Add upserts a registration by id.
func (s *Store) Add(reg *Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[reg.ID]; !ok {
		s.order = append(s.order, reg.ID)
	}
	s.registrations[reg.ID] = reg
	s.stale = true
}

// Get returns the registration for id or a MissingDependency error.
func (s *Store) Get(id string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[id]
	if !ok {
		return nil, errs.MissingDependency(id)
	}
	return reg, nil
}

// Has reports whether id is registered.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registrations[id]
	return ok
}

// Delete removes a registration.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[id]; !ok {
		return
	}
	delete(s.registrations, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	s.stale = true
}

// Reset removes every registration.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registrations = make(map[string]*Registration)
	s.order = nil
	s.sorted = nil
	s.stale = true
}

// IDs returns the registered ids in registration order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Len returns the number of registrations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registrations)
}

// Edges lists every consumer → argument edge in registration order.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []Edge
	for _, id := range s.order {
		for _, arg := range s.registrations[id].Implementation.ArgumentIDs {
			edges = append(edges, Edge{From: id, To: arg})
		}
	}
	return edges
}

// SortedIDs returns every id, registered or only referenced as an argument,
// with each constructor argument before its consumer. It fails with
// CyclicDependencies when the graph has a cycle.
func (s *Store) SortedIDs() ([]string, error) {
	s.mu.RLock()
	if !s.stale {
		sorted := slices.Clone(s.sorted)
		s.mu.RUnlock()
		return sorted, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stale {
		return slices.Clone(s.sorted), nil
	}

	g := s.buildGraph()
	consumersFirst := g.sort()
	s.rebuild++

	if len(consumersFirst) < len(g.nodes) {
		return nil, errs.CyclicDependencies(g.unresolved()...)
	}

	slices.Reverse(consumersFirst)
	s.sorted = consumersFirst
	s.stale = false
	return slices.Clone(s.sorted), nil
}

// ── graph ─────────────────────────────────────────────────────────────────────

type graph struct {
	nodes    []string            // every id, in first-seen order
	edges    map[string][]string // consumer → arguments
	inDegree map[string]int
}

// buildGraph must be called with s.mu held.
func (s *Store) buildGraph() *graph {
	g := &graph{
		edges:    make(map[string][]string),
		inDegree: make(map[string]int),
	}
	seen := func(id string) {
		if _, ok := g.inDegree[id]; !ok {
			g.inDegree[id] = 0
			g.nodes = append(g.nodes, id)
		}
	}

	for _, id := range s.order {
		seen(id)
		for _, arg := range s.registrations[id].Implementation.ArgumentIDs {
			seen(arg)
			g.inDegree[arg]++
			g.edges[id] = append(g.edges[id], arg)
		}
	}
	return g
}

// sort runs Kahn's algorithm, yielding consumers before their arguments. It
// consumes inDegree; whatever stays positive could not be ordered.
func (g *graph) sort() []string {
	queue := lo.Filter(g.nodes, func(id string, _ int) bool { return g.inDegree[id] == 0 })
	sorted := make([]string, 0, len(g.nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, arg := range g.edges[current] {
			g.inDegree[arg]--
			if g.inDegree[arg] == 0 {
				queue = append(queue, arg)
			}
		}
	}
	return sorted
}

// unresolved lists the ids left with positive in-degree that also consume
// something; pure leaves hanging off a cycle are not part of it.
func (g *graph) unresolved() []string {
	return lo.Filter(g.nodes, func(id string, _ int) bool {
		return g.inDegree[id] > 0 && len(g.edges[id]) > 0
	})
}
