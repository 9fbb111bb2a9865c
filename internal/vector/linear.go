package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kusuri/internal/models"
)

// LinearIndex scores every vocabulary vector with a single brute-force pass.
// Exact results, stable ordering; the right default for vocabularies up to
// tens of thousands of names.
type LinearIndex struct {
	dimensions int
	names      []string
	vectors    [][]float32
	norms      []float64
	byKey      map[string]int
}

// NewLinearIndex builds an index from vocabulary records. All vectors must
// share one dimension; duplicate normalized names keep the first occurrence.
// Vector norms are precomputed; query norms are computed per call, so vectors
// need not be pre-normalized.
func NewLinearIndex(records []Record) (*LinearIndex, error) {
	idx := &LinearIndex{byKey: make(map[string]int, len(records))}
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
		idx.byKey[key] = len(idx.names)
		idx.names = append(idx.names, models.DisplayName(rec.Name))
		idx.vectors = append(idx.vectors, vec)
		idx.norms = append(idx.norms, L2Norm(vec))
	}
	return idx, nil
}

// Type returns the index type identifier.
func (idx *LinearIndex) Type() string {
	return string(IndexTypeLinear)
}

// Nearest scans the whole vocabulary and returns the top-k matches with
// similarity >= threshold, descending by score, ties in vocabulary order.
func (idx *LinearIndex) Nearest(ctx context.Context, query []float32, k int, threshold float64) ([]models.Match, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	qnorm := L2Norm(query)
	if qnorm == 0 {
		return nil, nil
	}

	matches := make([]models.Match, 0, len(idx.names))
	for i, vec := range idx.vectors {
		if idx.norms[i] == 0 {
			continue
		}
		score := Dot(query, vec) / (qnorm * idx.norms[i])
		if score >= threshold {
			matches = append(matches, models.Match{Name: idx.names[i], Score: score})
		}
	}
	// Matches were appended in vocabulary order; a stable sort keeps that
	// order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Lookup returns the canonical display name for a case-insensitive exact match.
func (idx *LinearIndex) Lookup(name string) (string, bool) {
	i, ok := idx.byKey[models.NormalizeName(name)]
	if !ok {
		return "", false
	}
	return idx.names[i], true
}

// Names returns the vocabulary in original order.
func (idx *LinearIndex) Names() []string {
	out := make([]string, len(idx.names))
	copy(out, idx.names)
	return out
}

// Dimensions returns the vector dimension.
func (idx *LinearIndex) Dimensions() int {
	return idx.dimensions
}

// Size returns the vocabulary size.
func (idx *LinearIndex) Size() int {
	return len(idx.names)
}

// Records returns a copy of the index contents, for artifact writing.
func (idx *LinearIndex) Records() []Record {
	out := make([]Record, len(idx.names))
	for i := range idx.names {
		vec := make([]float32, len(idx.vectors[i]))
		copy(vec, idx.vectors[i])
		out[i] = Record{Name: idx.names[i], Vector: vec}
	}
	return out
}
