package resolver

import (
	"context"

	"github.com/hyperjump/kusuri/internal/models"
)

// NullResolver is the fallback used when embedding artifacts cannot be
// loaded. It echoes input names unchanged so the interaction pipeline keeps
// working on exact names, and returns no suggestions.
type NullResolver struct{}

// NewNullResolver returns the no-op resolver.
func NewNullResolver() *NullResolver {
	return &NullResolver{}
}

// Resolve echoes the trimmed input name. It always reports a match so callers
// proceed with the name as given.
func (n *NullResolver) Resolve(_ context.Context, name string, threshold float64) (string, bool, error) {
	query := models.ResolveQuery{Name: name, Threshold: threshold, TopK: 1}
	if err := query.Validate(); err != nil {
		return "", false, err
	}
	return models.DisplayName(name), true, nil
}

// Suggest returns an empty candidate list.
func (n *NullResolver) Suggest(_ context.Context, _ string, _ float64, _ int) ([]models.Match, error) {
	return []models.Match{}, nil
}

// Known reports false: no vocabulary is loaded.
func (n *NullResolver) Known(_ string) bool {
	return false
}

// IsAvailable reports false: similarity resolution is not possible.
func (n *NullResolver) IsAvailable() bool {
	return false
}
