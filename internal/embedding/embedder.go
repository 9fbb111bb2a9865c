// Package embedding provides drug-name embedding via ONNX runtime and caching.
package embedding

import "context"

// Embedder produces vector embeddings for drug names. ModelName identifies the
// underlying model so that index artifacts built offline and query-time
// embeddings are guaranteed to come from the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}
