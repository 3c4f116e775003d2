// Package retriever finds candidate policy documents for a free-text query.
// Retrieval is anchored on each document's purpose paragraphs; every hit is
// then expanded to the full policy+procedure text used for adjudication.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"policyaudit/embeddings"
	"policyaudit/schema"
	"policyaudit/vectordb"
)

// DefaultTopK is the default number of candidate documents per query.
const DefaultTopK = 3

// Candidate is one ranked candidate document with its combined
// policy+procedure text.
type Candidate struct {
	FileName string  `json:"file_name"`
	Content  string  `json:"content"`
	Score    float32 `json:"score"`
}

// Store is the subset of the vector store the retriever needs.
type Store interface {
	SearchPurpose(ctx context.Context, queryVec []float32, topK int) ([]vectordb.Match, error)
	SectionsByFile(ctx context.Context, fileName string) ([]schema.SectionRecord, error)
}

// Retriever embeds queries and expands purpose matches to candidate documents.
type Retriever struct {
	store    Store
	embedder embeddings.Embedder
}

// New constructs a Retriever.
func New(store Store, embedder embeddings.Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns up to topK candidate documents for the query, best-first.
// Duplicate documents (several purpose paragraphs of the same file matching)
// collapse into the first-ranked occurrence.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.store.SearchPurpose(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("purpose search: %w", err)
	}

	seen := map[string]bool{}
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		if seen[m.FileName] {
			continue
		}
		seen[m.FileName] = true
		sections, err := r.store.SectionsByFile(ctx, m.FileName)
		if err != nil {
			return nil, fmt.Errorf("fetch sections for %s: %w", m.FileName, err)
		}
		out = append(out, Candidate{
			FileName: m.FileName,
			Content:  combineSections(sections),
			Score:    m.Score,
		})
	}
	return out, nil
}

// combineSections joins policy before procedure with a blank-line separator.
func combineSections(sections []schema.SectionRecord) string {
	var policy, procedure string
	for _, s := range sections {
		switch s.Section {
		case schema.SectionPolicy:
			policy = s.Content
		case schema.SectionProcedure:
			procedure = s.Content
		}
	}
	parts := make([]string, 0, 2)
	if policy != "" {
		parts = append(parts, policy)
	}
	if procedure != "" {
		parts = append(parts, procedure)
	}
	return strings.Join(parts, "\n\n")
}
