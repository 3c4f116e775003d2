package segmenter

import (
	"errors"
	"strings"
	"testing"

	"policyaudit/schema"
)

const sampleDoc = `CalOptima Policy GG.1234

I. PURPOSE

The purpose of this policy is to define the data retention obligations that apply to all departments.

II. POLICY

All records shall be retained for a minimum of seven years from the date of creation.

Records containing member information shall be stored in encrypted form.

III. PROCEDURE

A. The records manager reviews the retention schedule annually.

B. Expired records are destroyed using the approved destruction method.

IV. ATTACHMENT(S)

None.`

func TestSplit(t *testing.T) {
	sections, err := Split(sampleDoc)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !strings.HasPrefix(sections.Purpose, "The purpose of this policy") {
		t.Fatalf("unexpected purpose span: %q", sections.Purpose)
	}
	if !strings.Contains(sections.Policy, "seven years") {
		t.Fatalf("unexpected policy span: %q", sections.Policy)
	}
	if !strings.Contains(sections.Procedure, "retention schedule annually") {
		t.Fatalf("unexpected procedure span: %q", sections.Procedure)
	}
	for _, span := range []string{sections.Purpose, sections.Policy, sections.Procedure} {
		if span == "" {
			t.Fatal("expected non-empty section span")
		}
		if strings.Contains(span, "ATTACHMENT") {
			t.Fatalf("span leaked past terminal anchor: %q", span)
		}
	}
}

func TestSplitCaseInsensitive(t *testing.T) {
	doc := strings.NewReplacer(
		"PURPOSE", "Purpose",
		"POLICY", "policy",
		"PROCEDURE", "Procedure",
		"ATTACHMENT(S)", "Attachment(s)",
	).Replace(sampleDoc)
	if _, err := Split(doc); err != nil {
		t.Fatalf("Split case-insensitive: %v", err)
	}
}

func TestSplitSpacedNumeral(t *testing.T) {
	doc := strings.Replace(sampleDoc, "IV. ATTACHMENT(S)", "I V. ATTACHMENT(S)", 1)
	if _, err := Split(doc); err != nil {
		t.Fatalf("Split with spaced numeral: %v", err)
	}
}

func TestSplitMissingAnchor(t *testing.T) {
	doc := strings.Replace(sampleDoc, "III. PROCEDURE", "III. PROCESS", 1)
	_, err := Split(doc)
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	in := "a  b\t\tc\r\n\n\n\n\nd   e  "
	got := Normalize(in)
	want := "a b c\n\nd e"
	if got != want {
		t.Fatalf("Normalize: got %q want %q", got, want)
	}
}

func TestPolicyProcedure(t *testing.T) {
	records, err := PolicyProcedure("gg1234.pdf", sampleDoc)
	if err != nil {
		t.Fatalf("PolicyProcedure: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 section records, got %d", len(records))
	}
	if records[0].Section != schema.SectionPolicy || records[1].Section != schema.SectionProcedure {
		t.Fatalf("unexpected section order: %q, %q", records[0].Section, records[1].Section)
	}
	for _, r := range records {
		if r.FileName != "gg1234.pdf" {
			t.Fatalf("file name not carried: %q", r.FileName)
		}
		if r.Content == "" {
			t.Fatal("expected non-empty section content")
		}
	}
}

func TestPurposeParagraphs(t *testing.T) {
	records, err := PurposeParagraphs("gg1234.pdf", sampleDoc)
	if err != nil {
		t.Fatalf("PurposeParagraphs: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected purpose paragraphs")
	}
	for i, r := range records {
		if r.Section != schema.SectionPurpose {
			t.Fatalf("unexpected section %q", r.Section)
		}
		if r.ParagraphID != i+1 {
			t.Fatalf("paragraph ids not contiguous: got %d at index %d", r.ParagraphID, i)
		}
	}
}

func TestParagraphsCoverAllSections(t *testing.T) {
	records, err := Paragraphs("gg1234.pdf", sampleDoc)
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range records {
		seen[r.Section] = true
	}
	for _, section := range []string{schema.SectionPurpose, schema.SectionPolicy, schema.SectionProcedure} {
		if !seen[section] {
			t.Fatalf("missing section %q in paragraph records", section)
		}
	}
}

func TestSplitParagraphsDropsEmpties(t *testing.T) {
	got := SplitParagraphs("first\n\n   \n\nsecond\n\n")
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected paragraphs: %#v", got)
	}
}
