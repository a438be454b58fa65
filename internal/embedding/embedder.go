// Package embedding provides the text embedding capability consumed by the
// dense retrieval methods: an ONNX implementation, a deterministic mock, and
// an LRU cache.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every call carries the
// ComputeContext it should execute under; implementations must not consult
// ambient or global device state.
type Embedder interface {
	Embed(ctx context.Context, cc ComputeContext, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, cc ComputeContext, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
