// Package resolver maps free-form drug names onto the canonical vocabulary
// using exact normalized matching first and embedding similarity second.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kusuri/internal/embedding"
	"github.com/hyperjump/kusuri/internal/models"
	"github.com/hyperjump/kusuri/internal/vector"
)

// Default similarity cutoffs. Resolution demands a confident match; suggestion
// casts a wider net.
const (
	DefaultResolveThreshold = 0.7
	DefaultSuggestThreshold = 0.5
)

// ErrUnavailable is returned when no embedder or vector index is loaded.
// Callers distinguish this from "no match found": the former is an
// infrastructure condition, the latter a valid answer.
var ErrUnavailable = errors.New("name resolution unavailable: no embedding index loaded")

// DrugResolver is the resolution surface the server and CLI program against.
type DrugResolver interface {
	Resolve(ctx context.Context, name string, threshold float64) (string, bool, error)
	Suggest(ctx context.Context, name string, threshold float64, topK int) ([]models.Match, error)
	// Known reports exact vocabulary membership after normalization.
	Known(name string) bool
	IsAvailable() bool
}

// Resolution is the outcome of resolving one input name.
type Resolution struct {
	Input    string `json:"input"`
	Resolved string `json:"resolved,omitempty"`
	Matched  bool   `json:"matched"`
}

// Resolver resolves names against a swappable vector index. The index can be
// replaced at runtime when artifacts are rebuilt; in-flight queries finish
// against the index they started with.
type Resolver struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	index    vector.Index
	maxTopK  int
	logger   *zap.Logger
}

// NewResolver creates a resolver. embedder and index may be nil, in which
// case the resolver reports itself unavailable until Swap provides an index.
func NewResolver(embedder embedding.Embedder, index vector.Index, maxTopK int, logger *zap.Logger) *Resolver {
	if maxTopK <= 0 {
		maxTopK = 25
	}
	return &Resolver{
		embedder: embedder,
		index:    index,
		maxTopK:  maxTopK,
		logger:   logger,
	}
}

// Swap atomically replaces the vector index, e.g. after an artifact rebuild.
func (r *Resolver) Swap(index vector.Index) {
	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
	if r.logger != nil && index != nil {
		r.logger.Info("vector index swapped",
			zap.String("type", index.Type()),
			zap.Int("size", index.Size()))
	}
}

func (r *Resolver) snapshot() (embedding.Embedder, vector.Index) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embedder, r.index
}

// Known reports whether the name is an exact vocabulary member.
func (r *Resolver) Known(name string) bool {
	_, idx := r.snapshot()
	if idx == nil {
		return false
	}
	_, ok := idx.Lookup(name)
	return ok
}

// IsAvailable reports whether similarity resolution can be performed.
func (r *Resolver) IsAvailable() bool {
	emb, idx := r.snapshot()
	return emb != nil && idx != nil && idx.Size() > 0
}

// Resolve maps an input name to a vocabulary name. The boolean reports
// whether a match was found; ErrUnavailable signals that resolution could not
// be attempted at all. An exact normalized match short-circuits the
// similarity search and never depends on the threshold.
func (r *Resolver) Resolve(ctx context.Context, name string, threshold float64) (string, bool, error) {
	query := models.ResolveQuery{Name: name, Threshold: threshold, TopK: 1}
	if err := query.Validate(); err != nil {
		return "", false, err
	}

	emb, idx := r.snapshot()
	if emb == nil || idx == nil || idx.Size() == 0 {
		return "", false, ErrUnavailable
	}

	if canonical, ok := idx.Lookup(name); ok {
		return canonical, true, nil
	}

	vec, err := emb.Embed(ctx, models.NormalizeName(name))
	if err != nil {
		return "", false, fmt.Errorf("failed to embed %q: %w", name, err)
	}
	matches, err := idx.Nearest(ctx, vec, 1, threshold)
	if err != nil {
		return "", false, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return matches[0].Name, true, nil
}

// Suggest returns up to topK vocabulary names scoring at or above the
// threshold, best first. An exact match still runs through the index so its
// score is reported alongside the alternatives.
func (r *Resolver) Suggest(ctx context.Context, name string, threshold float64, topK int) ([]models.Match, error) {
	query := models.ResolveQuery{Name: name, Threshold: threshold, TopK: topK}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.TopK > r.maxTopK {
		query.TopK = r.maxTopK
	}

	emb, idx := r.snapshot()
	if emb == nil || idx == nil || idx.Size() == 0 {
		return nil, ErrUnavailable
	}

	vec, err := emb.Embed(ctx, models.NormalizeName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to embed %q: %w", name, err)
	}
	matches, err := idx.Nearest(ctx, vec, query.TopK, threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if matches == nil {
		matches = []models.Match{}
	}
	return matches, nil
}

// ResolveMany resolves a batch of names with a shared threshold. Unavailable
// resolution fails the whole batch; individual misses do not.
func (r *Resolver) ResolveMany(ctx context.Context, names []string, threshold float64) ([]Resolution, error) {
	out := make([]Resolution, 0, len(names))
	for _, name := range names {
		resolved, matched, err := r.Resolve(ctx, name, threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, Resolution{Input: name, Resolved: resolved, Matched: matched})
	}
	return out, nil
}
