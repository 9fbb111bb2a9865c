package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/coder/hnsw"

	"github.com/hyperjump/kusuri/internal/models"
)

// HNSWIndex answers nearest-neighbor queries through an HNSW graph. Candidate
// retrieval is approximate; reported scores are exact cosine similarities
// recomputed from the stored vectors. Worth it only for vocabularies well past
// what LinearIndex handles comfortably.
type HNSWIndex struct {
	graph      *hnsw.Graph[int]
	dimensions int
	names      []string
	vectors    [][]float32
	norms      []float64
	byKey      map[string]int
}

// NewHNSWIndex builds an HNSW-backed index from vocabulary records.
func NewHNSWIndex(records []Record) (*HNSWIndex, error) {
	idx := &HNSWIndex{
		graph: hnsw.NewGraph[int](),
		byKey: make(map[string]int, len(records)),
	}
	for _, rec := range records {
		key := models.NormalizeName(rec.Name)
		if key == "" {
			return nil, fmt.Errorf("vocabulary contains an empty name")
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(rec.Vector)
		}
		if len(rec.Vector) != idx.dimensions {
			return nil, fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d",
				rec.Name, len(rec.Vector), idx.dimensions)
		}
		if _, seen := idx.byKey[key]; seen {
			continue
		}
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		id := len(idx.names)
		idx.byKey[key] = id
		idx.names = append(idx.names, models.DisplayName(rec.Name))
		idx.vectors = append(idx.vectors, vec)
		idx.norms = append(idx.norms, L2Norm(vec))
		idx.graph.Add(hnsw.MakeNode(id, vec))
	}
	return idx, nil
}

// Type returns the index type identifier.
func (idx *HNSWIndex) Type() string {
	return string(IndexTypeHNSW)
}

// Nearest retrieves candidates from the HNSW graph, rescores them with exact
// cosine similarity, and returns the qualifying matches in the same order
// contract as LinearIndex.
func (idx *HNSWIndex) Nearest(ctx context.Context, query []float32, k int, threshold float64) ([]models.Match, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(idx.names) == 0 {
		return nil, nil
	}
	qnorm := L2Norm(query)
	if qnorm == 0 {
		return nil, nil
	}

	neighbors := idx.graph.Search(query, k)
	type scored struct {
		id    int
		score float64
	}
	candidates := make([]scored, 0, len(neighbors))
	for _, node := range neighbors {
		id := node.Key
		if idx.norms[id] == 0 {
			continue
		}
		score := Dot(query, idx.vectors[id]) / (qnorm * idx.norms[id])
		if score >= threshold {
			candidates = append(candidates, scored{id: id, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	matches := make([]models.Match, len(candidates))
	for i, c := range candidates {
		matches[i] = models.Match{Name: idx.names[c.id], Score: c.score}
	}
	return matches, nil
}

// Lookup returns the canonical display name for a case-insensitive exact match.
func (idx *HNSWIndex) Lookup(name string) (string, bool) {
	i, ok := idx.byKey[models.NormalizeName(name)]
	if !ok {
		return "", false
	}
	return idx.names[i], true
}

// Names returns the vocabulary in original order.
func (idx *HNSWIndex) Names() []string {
	out := make([]string, len(idx.names))
	copy(out, idx.names)
	return out
}

// Dimensions returns the vector dimension.
func (idx *HNSWIndex) Dimensions() int {
	return idx.dimensions
}

// Size returns the vocabulary size.
func (idx *HNSWIndex) Size() int {
	return len(idx.names)
}
