// Package embeddings defines the embedding capability consumed by the
// indexing and retrieval layers.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned by the single-text embedding path when the text
// is blank. Batch embedding of an empty slice is not an error.
var ErrEmptyInput = errors.New("embeddings: text to embed cannot be empty")

// Embedder is a minimal interface for computing vector embeddings
// for documents and queries. The same model and dimensionality must be used
// at index time and query time for nearest-neighbor compatibility.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
