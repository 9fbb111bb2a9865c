// Package vector provides the embedding index over the drug vocabulary:
// a fixed set of canonical names, each paired with a precomputed vector,
// queried by cosine similarity. Indexes are immutable once built; replacing
// the vocabulary means building a new index and swapping it in whole.
package vector

import (
	"context"

	"github.com/hyperjump/kusuri/internal/models"
)

// Record pairs a canonical vocabulary name with its embedding vector.
type Record struct {
	Name   string
	Vector []float32
}

// Index answers nearest-neighbor queries over the vocabulary. Implementations
// are safe for unbounded concurrent readers; nothing mutates after construction.
type Index interface {
	// Nearest returns up to k vocabulary entries ranked by descending cosine
	// similarity to query, keeping only scores >= threshold. Ties are broken
	// by vocabulary order.
	Nearest(ctx context.Context, query []float32, k int, threshold float64) ([]models.Match, error)
	// Lookup returns the canonical display name for a case-insensitive exact match.
	Lookup(name string) (string, bool)
	// Names returns the vocabulary in original order.
	Names() []string
	Dimensions() int
	Size() int
	Type() string
}
