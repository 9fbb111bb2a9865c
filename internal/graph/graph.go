// Package graph provides the in-memory undirected drug interaction graph:
// vertices are canonical drug names, edges carry a free-text interaction
// condition, and a normalized-key index gives O(1) point lookups.
package graph

import (
	"fmt"
	"sync"

	"github.com/hyperjump/kusuri/internal/models"
)

type vertex struct {
	name string // first-seen display form
	key  string // normalized, unique across vertices
}

type edge struct {
	a, b      int // vertex ids, a <= b
	condition string
}

// pairKey identifies an edge by its ordered (min-id, max-id) vertex pair, so
// lookups cannot depend on argument order.
type pairKey struct {
	a, b int
}

func orderedPair(v1, v2 int) pairKey {
	if v1 > v2 {
		v1, v2 = v2, v1
	}
	return pairKey{a: v1, b: v2}
}

// Graph is the interaction store. Writes are serialized behind a single lock;
// reads proceed concurrently and always observe a consistent snapshot.
type Graph struct {
	mu        sync.RWMutex
	vertices  []vertex
	byKey     map[string]int
	edges     []edge
	edgeIndex map[pairKey]int
	adjacency map[int][]int // vertex id -> edge ids in insertion order
}

// New creates an empty interaction graph.
func New() *Graph {
	return &Graph{
		byKey:     make(map[string]int),
		edgeIndex: make(map[pairKey]int),
		adjacency: make(map[int][]int),
	}
}

// getOrCreateVertexLocked returns the vertex id for a drug name, creating the
// vertex on first sight. Caller holds the write lock.
func (g *Graph) getOrCreateVertexLocked(name string) int {
	key := models.NormalizeName(name)
	if id, ok := g.byKey[key]; ok {
		return id
	}
	id := len(g.vertices)
	g.vertices = append(g.vertices, vertex{name: models.DisplayName(name), key: key})
	g.byKey[key] = id
	return id
}

// Upsert records an interaction between two drugs, creating vertices on first
// sight and overwriting the condition of an existing edge (last write wins).
// Empty names or an empty condition are programming errors.
func (g *Graph) Upsert(name1, name2, condition string) error {
	if models.DisplayName(name1) == "" || models.DisplayName(name2) == "" {
		return fmt.Errorf("drug names cannot be empty")
	}
	if condition == "" {
		return fmt.Errorf("condition cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	v1 := g.getOrCreateVertexLocked(name1)
	v2 := g.getOrCreateVertexLocked(name2)
	key := orderedPair(v1, v2)

	if i, ok := g.edgeIndex[key]; ok {
		g.edges[i].condition = condition
		return nil
	}

	i := len(g.edges)
	g.edges = append(g.edges, edge{a: key.a, b: key.b, condition: condition})
	g.edgeIndex[key] = i
	g.adjacency[v1] = append(g.adjacency[v1], i)
	if v2 != v1 {
		g.adjacency[v2] = append(g.adjacency[v2], i)
	}
	return nil
}

// Get returns the interaction condition between two drugs. ok is false when
// either drug is unknown or no edge exists; the result is symmetric in its
// arguments.
func (g *Graph) Get(name1, name2 string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v1, ok1 := g.byKey[models.NormalizeName(name1)]
	v2, ok2 := g.byKey[models.NormalizeName(name2)]
	if !ok1 || !ok2 {
		return "", false
	}
	i, ok := g.edgeIndex[orderedPair(v1, v2)]
	if !ok {
		return "", false
	}
	return g.edges[i].condition, true
}

// InteractionsFor returns every recorded interaction for a drug. An unknown
// drug yields an empty list, not an error: "no data" and "unknown entity" are
// deliberately the same observable outcome.
func (g *Graph) InteractionsFor(name string) []models.Interaction {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.byKey[models.NormalizeName(name)]
	if !ok {
		return []models.Interaction{}
	}
	out := make([]models.Interaction, 0, len(g.adjacency[v]))
	for _, i := range g.adjacency[v] {
		e := g.edges[i]
		neighbor := e.a
		if neighbor == v {
			neighbor = e.b
		}
		out = append(out, models.Interaction{
			Drug:      g.vertices[neighbor].name,
			Condition: e.condition,
		})
	}
	return out
}

// Has reports whether a drug is known to the graph.
func (g *Graph) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byKey[models.NormalizeName(name)]
	return ok
}

// Stats returns the vertex and edge counts.
func (g *Graph) Stats() models.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return models.GraphStats{Drugs: len(g.vertices), Interactions: len(g.edges)}
}

// Len returns the number of interactions (edges).
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Records returns every edge as a full interaction record, for persistence.
func (g *Graph) Records() []models.InteractionRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.InteractionRecord, len(g.edges))
	for i, e := range g.edges {
		out[i] = models.InteractionRecord{
			Drug1:     g.vertices[e.a].name,
			Drug2:     g.vertices[e.b].name,
			Condition: e.condition,
		}
	}
	return out
}
