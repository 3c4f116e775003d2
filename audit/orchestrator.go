// Package audit drives the per-requirement evaluation loop: extract
// requirements, retrieve candidate documents, adjudicate each candidate in
// rank order and record the outcome.
package audit

import (
	"context"
	"fmt"
	"strings"

	"policyaudit/retriever"
	"policyaudit/schema"
)

// Extractor produces requirements from free text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]schema.Requirement, error)
}

// Retriever returns ranked candidate documents for a requirement.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retriever.Candidate, error)
}

// Adjudicator decides whether a candidate text satisfies a requirement.
type Adjudicator interface {
	Check(ctx context.Context, candidateText, requirement string) (schema.Verdict, error)
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithTopK sets the number of candidate documents retrieved per requirement.
func WithTopK(topK int) Option {
	return func(a *Auditor) {
		if topK > 0 {
			a.topK = topK
		}
	}
}

// WithAllMatches disables the short-circuit: every candidate is adjudicated
// and additional matching documents are collected into Requirement.AlsoMet.
// The cited document is still the first match in rank order.
func WithAllMatches() Option {
	return func(a *Auditor) { a.allMatches = true }
}

// WithLogf sets the progress log sink.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(a *Auditor) {
		if logf != nil {
			a.logf = logf
		}
	}
}

// Auditor runs audits. Requirements are processed independently and in
// order; no requirement's outcome affects another's retrieval or
// adjudication.
type Auditor struct {
	extractor   Extractor
	retriever   Retriever
	adjudicator Adjudicator
	topK        int
	allMatches  bool
	logf        func(format string, args ...any)
}

// New constructs an Auditor.
func New(extractor Extractor, retr Retriever, adj Adjudicator, opts ...Option) *Auditor {
	a := &Auditor{
		extractor:   extractor,
		retriever:   retr,
		adjudicator: adj,
		topK:        retriever.DefaultTopK,
		logf:        func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit extracts requirements from text and adjudicates each one.
func (a *Auditor) Audit(ctx context.Context, text string) ([]schema.Requirement, error) {
	requirements, err := a.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	a.logf("extracted %d compliance requirements", len(requirements))
	for i := range requirements {
		checked, err := a.AuditOne(ctx, requirements[i])
		if err != nil {
			return nil, fmt.Errorf("requirement %d: %w", requirements[i].ID, err)
		}
		a.logf("checked %d/%d requirements", i+1, len(requirements))
		requirements[i] = checked
	}
	return requirements, nil
}

// AuditOne adjudicates a single requirement against its retrieved candidates
// in rank order. The first candidate with an affirmative verdict settles the
// requirement; exhaustion of the list (including an empty list) marks it not
// met with an explanation listing every reviewed document. A failure to reach
// the model service aborts the requirement with an error rather than
// recording an outcome.
func (a *Auditor) AuditOne(ctx context.Context, req schema.Requirement) (schema.Requirement, error) {
	// Adjudication settles the requirement exactly once; any earlier outcome
	// carried in by the caller is discarded.
	req.IsMet = nil
	req.FileName = ""
	req.Citation = ""
	req.Explanation = ""
	req.AlsoMet = nil

	candidates, err := a.retriever.Retrieve(ctx, req.Requirement, a.topK)
	if err != nil {
		return schema.Requirement{}, fmt.Errorf("retrieve candidates: %w", err)
	}
	a.logf("retrieved %d candidate documents", len(candidates))

	reviewed := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		reviewed = append(reviewed, candidate.FileName)
		verdict, err := a.adjudicator.Check(ctx, candidate.Content, req.Requirement)
		if err != nil {
			// Malformed model output already degrades to an unknown verdict
			// inside the adjudicator; an error here means the model service
			// itself failed, which must not read as non-compliance.
			return schema.Requirement{}, fmt.Errorf("adjudicate against %s: %w", candidate.FileName, err)
		}
		if !verdict.Met() {
			continue
		}
		if req.IsMet == nil {
			req.IsMet = schema.Bool(true)
			req.FileName = candidate.FileName
			req.Citation = verdict.Citation
			req.Explanation = ""
			if !a.allMatches {
				break
			}
			continue
		}
		req.AlsoMet = append(req.AlsoMet, candidate.FileName)
	}
	if req.IsMet == nil || !*req.IsMet {
		req.IsMet = schema.Bool(false)
		req.Citation = ""
		req.Explanation = "Documents reviewed: " + strings.Join(reviewed, "; ")
	}
	return req, nil
}
