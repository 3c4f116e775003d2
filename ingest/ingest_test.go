package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"policyaudit/embeddings"
	"policyaudit/schema"
)

type fakeStore struct {
	paragraphs []schema.ParagraphRecord
	sections   []schema.SectionRecord
}

func (f *fakeStore) AddParagraphs(ctx context.Context, records []schema.ParagraphRecord, embedder embeddings.Embedder) ([]string, error) {
	f.paragraphs = append(f.paragraphs, records...)
	return make([]string, len(records)), nil
}

func (f *fakeStore) AddSections(ctx context.Context, records []schema.SectionRecord) error {
	f.sections = append(f.sections, records...)
	return nil
}

const wellFormedDoc = `I. PURPOSE

Defines the retention obligations that apply to all departments across the organization.

II. POLICY

All records shall be retained for seven years.

III. PROCEDURE

The records manager reviews the schedule annually.

IV. ATTACHMENT(S)

None.`

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "gg1234.pdf", wellFormedDoc)

	store := &fakeStore{}
	svc := New(store, embeddings.NewSimple(8))
	if err := svc.File(context.Background(), filepath.Join(dir, "gg1234.pdf")); err != nil {
		t.Fatalf("File: %v", err)
	}
	if len(store.paragraphs) == 0 {
		t.Fatal("expected purpose paragraphs indexed")
	}
	for _, p := range store.paragraphs {
		if p.FileName != "gg1234.pdf" || p.Section != schema.SectionPurpose {
			t.Fatalf("unexpected paragraph record: %#v", p)
		}
	}
	if len(store.sections) != 2 {
		t.Fatalf("expected policy and procedure sections, got %d", len(store.sections))
	}
}

func TestDirectorySkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.pdf", wellFormedDoc)
	writeDoc(t, dir, "bad.pdf", "this document has no section anchors at all")
	writeDoc(t, dir, "notes.txt", "ignored entirely")

	store := &fakeStore{}
	svc := New(store, embeddings.NewSimple(8))
	summary, err := svc.Directory(context.Background(), dir)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if summary.Ingested != 1 {
		t.Fatalf("expected 1 ingested document, got %d", summary.Ingested)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0] != "bad.pdf" {
		t.Fatalf("expected bad.pdf skipped, got %#v", summary.Skipped)
	}
	for _, p := range store.paragraphs {
		if p.FileName != "good.pdf" {
			t.Fatalf("malformed document leaked into index: %#v", p)
		}
	}
}
