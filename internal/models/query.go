package models

import "fmt"

// ResolveQuery is a fuzzy name-resolution request. Threshold is always explicit:
// different call sites need different confidence bars, so there is no baked-in
// default beyond what the caller supplies.
type ResolveQuery struct {
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
	TopK      int     `json:"top_k,omitempty"`
}

// Validate fails fast on programming errors: empty query, threshold outside
// [0,1], or non-positive top_k. TopK defaults to 1 when unset.
func (q *ResolveQuery) Validate() error {
	if DisplayName(q.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if q.Threshold < 0 || q.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1], got %g", q.Threshold)
	}
	if q.TopK == 0 {
		q.TopK = 1
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must be positive, got %d", q.TopK)
	}
	return nil
}

// InteractionQuery asks for the interaction between two structured drug fields.
// Two distinct fields are required; the engine never guesses a split from a
// combined free-text string.
type InteractionQuery struct {
	Drug1 string `json:"drug1"`
	Drug2 string `json:"drug2"`
}

// Validate rejects queries where either drug name is empty after trimming.
func (q *InteractionQuery) Validate() error {
	if DisplayName(q.Drug1) == "" || DisplayName(q.Drug2) == "" {
		return fmt.Errorf("both drug1 and drug2 are required")
	}
	return nil
}
