// Package embedding provides text-to-vector encoders (ONNX, OpenAI, mock) and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be safe for
// concurrent use and return vectors of length Dimensions() from the model named by ModelID().
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}

// embedEach calls Embed for every text in order and stops at the first error.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
