package embeddings

import (
	"context"
	"strings"
)

// Simple returns deterministic vectors for local runs and tests. Identical
// texts always map to identical vectors, so a text inserted and then queried
// is its own nearest neighbor.
type Simple struct {
	Dim int
}

// NewSimple constructs a deterministic embedder with the given dimension.
func NewSimple(dim int) *Simple {
	if dim <= 0 {
		dim = 64
	}
	return &Simple{Dim: dim}
}

func (e *Simple) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	out := make([][]float32, len(docs))
	for i, s := range docs {
		out[i] = embedString(s, e.Dim)
	}
	return out, nil
}

func (e *Simple) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return embedString(text, e.Dim), nil
}

func embedString(s string, dim int) []float32 {
	v := make([]float32, dim)
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*16777619 ^ uint32(s[i])
	}
	seed := h
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float32(seed%10000) / 10000.0
	}
	return v
}
