package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"policyaudit/retriever"
	"policyaudit/schema"
)

type fakeExtractor struct {
	requirements []schema.Requirement
	err          error
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]schema.Requirement, error) {
	return f.requirements, f.err
}

type fakeRetriever struct {
	candidates []retriever.Candidate
	err        error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retriever.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candidates) > topK {
		return f.candidates[:topK], nil
	}
	return f.candidates, nil
}

type fakeAdjudicator struct {
	verdicts map[string]schema.Verdict
	errs     map[string]error
	checked  []string
}

func (f *fakeAdjudicator) Check(ctx context.Context, candidateText, requirement string) (schema.Verdict, error) {
	f.checked = append(f.checked, candidateText)
	if err := f.errs[candidateText]; err != nil {
		return schema.Verdict{}, err
	}
	return f.verdicts[candidateText], nil
}

func candidates(names ...string) []retriever.Candidate {
	out := make([]retriever.Candidate, 0, len(names))
	for _, n := range names {
		out = append(out, retriever.Candidate{FileName: n + ".pdf", Content: n})
	}
	return out
}

func TestAuditOneShortCircuit(t *testing.T) {
	adj := &fakeAdjudicator{verdicts: map[string]schema.Verdict{
		"a": {IsMet: schema.Bool(true), Citation: "cited from a"},
		"b": {IsMet: schema.Bool(false)},
		"c": {IsMet: schema.Bool(true), Citation: "cited from c"},
	}}
	auditor := New(&fakeExtractor{}, &fakeRetriever{candidates: candidates("a", "b", "c")}, adj)

	got, err := auditor.AuditOne(context.Background(), schema.Requirement{ID: 1, Requirement: "req?"})
	if err != nil {
		t.Fatalf("AuditOne: %v", err)
	}
	if got.IsMet == nil || !*got.IsMet {
		t.Fatal("expected met")
	}
	if got.FileName != "a.pdf" || got.Citation != "cited from a" {
		t.Fatalf("expected first match cited, got %#v", got)
	}
	if len(adj.checked) != 1 {
		t.Fatalf("short-circuit violated: %d candidates adjudicated", len(adj.checked))
	}
}

func TestAuditOneExhaustion(t *testing.T) {
	adj := &fakeAdjudicator{verdicts: map[string]schema.Verdict{
		"a": {IsMet: schema.Bool(false), Explanation: "nope"},
		"b": {}, // unknown tri-state
	}}
	auditor := New(&fakeExtractor{}, &fakeRetriever{candidates: candidates("a", "b")}, adj)

	got, err := auditor.AuditOne(context.Background(), schema.Requirement{ID: 1, Requirement: "req?"})
	if err != nil {
		t.Fatalf("AuditOne: %v", err)
	}
	if got.IsMet == nil || *got.IsMet {
		t.Fatal("expected not met")
	}
	if got.Citation != "" {
		t.Fatalf("citation must be empty, got %q", got.Citation)
	}
	if got.Explanation != "Documents reviewed: a.pdf; b.pdf" {
		t.Fatalf("unexpected explanation: %q", got.Explanation)
	}
}

func TestAuditOneNoCandidates(t *testing.T) {
	auditor := New(&fakeExtractor{}, &fakeRetriever{}, &fakeAdjudicator{})
	got, err := auditor.AuditOne(context.Background(), schema.Requirement{ID: 1, Requirement: "req?"})
	if err != nil {
		t.Fatalf("AuditOne: %v", err)
	}
	if got.IsMet == nil || *got.IsMet {
		t.Fatal("expected not met")
	}
	if got.Explanation != "Documents reviewed: " {
		t.Fatalf("unexpected explanation: %q", got.Explanation)
	}
}

func TestAuditOneAdjudicationFailureFatal(t *testing.T) {
	wantErr := errors.New("dial tcp: connection refused")
	adj := &fakeAdjudicator{
		errs: map[string]error{"a": wantErr, "b": wantErr},
	}
	auditor := New(&fakeExtractor{}, &fakeRetriever{candidates: candidates("a", "b")}, adj)
	got, err := auditor.AuditOne(context.Background(), schema.Requirement{ID: 1, Requirement: "req?"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected model outage surfaced as error, got %v", err)
	}
	if got.IsMet != nil {
		t.Fatalf("outage must not record an outcome, got %#v", got)
	}
	if len(adj.checked) != 1 {
		t.Fatalf("expected the audit to stop at the first failure, got %d checks", len(adj.checked))
	}
}

func TestAuditOneAllMatches(t *testing.T) {
	adj := &fakeAdjudicator{verdicts: map[string]schema.Verdict{
		"a": {IsMet: schema.Bool(true), Citation: "from a"},
		"b": {IsMet: schema.Bool(false)},
		"c": {IsMet: schema.Bool(true), Citation: "from c"},
	}}
	auditor := New(&fakeExtractor{}, &fakeRetriever{candidates: candidates("a", "b", "c")}, adj, WithAllMatches())
	got, err := auditor.AuditOne(context.Background(), schema.Requirement{ID: 1, Requirement: "req?"})
	if err != nil {
		t.Fatalf("AuditOne: %v", err)
	}
	if got.FileName != "a.pdf" || got.Citation != "from a" {
		t.Fatalf("cited document must stay the first match: %#v", got)
	}
	if len(got.AlsoMet) != 1 || got.AlsoMet[0] != "c.pdf" {
		t.Fatalf("expected c.pdf in AlsoMet, got %#v", got.AlsoMet)
	}
	if len(adj.checked) != 3 {
		t.Fatalf("all-matches mode must adjudicate every candidate, got %d", len(adj.checked))
	}
}

func TestAuditOneResetsCarriedOutcome(t *testing.T) {
	auditor := New(&fakeExtractor{}, &fakeRetriever{}, &fakeAdjudicator{})
	stale := schema.Requirement{
		ID: 1, Requirement: "req?",
		IsMet: schema.Bool(true), FileName: "old.pdf", Citation: "stale",
	}
	got, err := auditor.AuditOne(context.Background(), stale)
	if err != nil {
		t.Fatalf("AuditOne: %v", err)
	}
	if *got.IsMet || got.FileName != "" || got.Citation != "" {
		t.Fatalf("carried outcome not reset: %#v", got)
	}
}

func TestAuditProcessesInOrder(t *testing.T) {
	extractor := &fakeExtractor{requirements: []schema.Requirement{
		{ID: 1, Requirement: "first?"},
		{ID: 2, Requirement: "second?"},
	}}
	adj := &fakeAdjudicator{verdicts: map[string]schema.Verdict{
		"a": {IsMet: schema.Bool(true), Citation: "from a"},
	}}
	auditor := New(extractor, &fakeRetriever{candidates: candidates("a")}, adj)

	got, err := auditor.Audit(context.Background(), "text")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(got))
	}
	for i, r := range got {
		if r.ID != i+1 {
			t.Fatalf("order not preserved: %#v", got)
		}
		if r.IsMet == nil || !*r.IsMet {
			t.Fatalf("requirement %d not settled: %#v", r.ID, r)
		}
	}
}

func TestAuditExtractionFailureFatal(t *testing.T) {
	wantErr := errors.New("malformed")
	auditor := New(&fakeExtractor{err: wantErr}, &fakeRetriever{}, &fakeAdjudicator{})
	if _, err := auditor.Audit(context.Background(), "text"); !errors.Is(err, wantErr) {
		t.Fatalf("expected extraction error surfaced, got %v", err)
	}
}

func TestAuditRetrievalFailureFatal(t *testing.T) {
	auditor := New(
		&fakeExtractor{requirements: []schema.Requirement{{ID: 1, Requirement: "r?"}}},
		&fakeRetriever{err: errors.New("store down")},
		&fakeAdjudicator{},
	)
	_, err := auditor.Audit(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "store down") {
		t.Fatalf("expected retrieval error surfaced, got %v", err)
	}
}
