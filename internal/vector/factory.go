package vector

import "fmt"

// IndexType represents the type of embedding index to use.
type IndexType string

const (
	// IndexTypeLinear uses brute-force cosine search. Exact; good for
	// vocabularies up to tens of thousands of names.
	IndexTypeLinear IndexType = "linear"
	// IndexTypeHNSW uses an HNSW graph for approximate candidate retrieval
	// with exact rescoring. Good for much larger vocabularies.
	IndexTypeHNSW IndexType = "hnsw"
)

// NewIndex creates an index of the specified type over the given records.
// Supported types: "linear" (default), "hnsw".
func NewIndex(indexType string, records []Record) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeLinear, "":
		return NewLinearIndex(records)
	case IndexTypeHNSW:
		return NewHNSWIndex(records)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: linear, hnsw)", indexType)
	}
}
