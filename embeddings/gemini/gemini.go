package gemini

import (
	"context"
	"fmt"
	"strings"

	"policyaudit/embeddings"
)

// Embedder bridges the client to the embeddings.Embedder interface.
type Embedder struct {
	C *Client
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if e == nil || e.C == nil {
		return nil, fmt.Errorf("gemini embedder not configured")
	}
	return e.C.Embed(ctx, docs)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.C == nil {
		return nil, fmt.Errorf("gemini embedder not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, embeddings.ErrEmptyInput
	}
	return e.C.EmbedOne(ctx, text)
}
