// Package segmenter splits regulatory policy documents that follow the
// PURPOSE / POLICY / PROCEDURE / ATTACHMENT(S) template into typed sections
// and paragraph-level records.
package segmenter

import (
	"errors"
	"regexp"
	"strings"

	"policyaudit/schema"
)

// ErrSectionNotFound indicates the document does not contain the expected
// section anchors in order. Callers ingesting multiple documents should skip
// the offending document and continue.
var ErrSectionNotFound = errors.New("segmenter: section anchors not found")

var (
	carriageRe   = regexp.MustCompile(`\r`)
	horizontalRe = regexp.MustCompile(`[ \t]+`)
	newlinesRe   = regexp.MustCompile(`\n{3,}`)
	blankRunRe   = regexp.MustCompile(`\n[ \t]*\n`)
)

// Anchor matching is case-insensitive and tolerant of spaced Roman numerals
// ("I V." as emitted by some PDF text extractors).
var (
	sectionsRe = regexp.MustCompile(
		`(?is)\bI\s*\.\s*PURPOSE\b(.*?)\bI\s*I\s*\.\s*POLICY\b(.*?)\bI\s*I\s*I\s*\.\s*PROCEDURE\b(.*?)\bI\s*V?\s*\.\s*ATTACHMENT\(S\)`)
	purposeRe = regexp.MustCompile(
		`(?is)\bI\s*\.\s*PURPOSE\b(.*?)\bI\s*I\s*\.\s*POLICY\b`)
	policyProcedureRe = regexp.MustCompile(
		`(?is)\bI\s*I\s*\.\s*POLICY\b(.*?)\bI\s*I\s*I\s*\.\s*PROCEDURE\b(.*?)\bI\s*V?\s*\.\s*ATTACHMENT\(S\)`)
)

// Sections holds the three template spans, trimmed, in document order.
type Sections struct {
	Purpose   string
	Policy    string
	Procedure string
}

// Normalize canonicalizes raw extracted text: CR removal, horizontal
// whitespace collapsed to single spaces, runs of three or more newlines
// reduced to a paragraph break, leading/trailing whitespace trimmed.
func Normalize(text string) string {
	text = carriageRe.ReplaceAllString(text, "")
	text = horizontalRe.ReplaceAllString(text, " ")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Split locates the PURPOSE/POLICY/PROCEDURE/ATTACHMENT(S) anchors in strict
// document order within the normalized text and returns the three spans
// between consecutive anchors. Returns ErrSectionNotFound when the anchor
// sequence is absent.
func Split(text string) (*Sections, error) {
	text = Normalize(text)
	m := sectionsRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrSectionNotFound
	}
	return &Sections{
		Purpose:   strings.TrimSpace(m[1]),
		Policy:    strings.TrimSpace(m[2]),
		Procedure: strings.TrimSpace(m[3]),
	}, nil
}

// Purpose returns the PURPOSE span only (anchored up to POLICY).
func Purpose(text string) (string, error) {
	text = Normalize(text)
	m := purposeRe.FindStringSubmatch(text)
	if m == nil {
		return "", ErrSectionNotFound
	}
	return strings.TrimSpace(m[1]), nil
}

// PolicyProcedure returns the whole-section POLICY and PROCEDURE records for
// a document. These are stored unsplit: retrieval indexes purpose paragraphs
// but adjudication reads the full policy+procedure text.
func PolicyProcedure(fileName, text string) ([]schema.SectionRecord, error) {
	text = Normalize(text)
	m := policyProcedureRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrSectionNotFound
	}
	return []schema.SectionRecord{
		{FileName: fileName, Section: schema.SectionPolicy, Content: strings.TrimSpace(m[1])},
		{FileName: fileName, Section: schema.SectionProcedure, Content: strings.TrimSpace(m[2])},
	}, nil
}

// PurposeParagraphs segments the document and returns merged purpose
// paragraphs numbered 1..N, ready for indexing.
func PurposeParagraphs(fileName, text string) ([]schema.ParagraphRecord, error) {
	purpose, err := Purpose(text)
	if err != nil {
		return nil, err
	}
	return sectionParagraphs(fileName, schema.SectionPurpose, purpose, DefaultMergeThreshold), nil
}

// Paragraphs segments the document into merged paragraph records for all
// three sections, numbered 1..N per section.
func Paragraphs(fileName, text string) ([]schema.ParagraphRecord, error) {
	sections, err := Split(text)
	if err != nil {
		return nil, err
	}
	var out []schema.ParagraphRecord
	out = append(out, sectionParagraphs(fileName, schema.SectionPurpose, sections.Purpose, DefaultMergeThreshold)...)
	out = append(out, sectionParagraphs(fileName, schema.SectionPolicy, sections.Policy, DefaultMergeThreshold)...)
	out = append(out, sectionParagraphs(fileName, schema.SectionProcedure, sections.Procedure, DefaultMergeThreshold)...)
	return out, nil
}

func sectionParagraphs(fileName, section, text string, threshold int) []schema.ParagraphRecord {
	paragraphs := MergeShort(SplitParagraphs(text), threshold)
	out := make([]schema.ParagraphRecord, 0, len(paragraphs))
	for i, p := range paragraphs {
		out = append(out, schema.ParagraphRecord{
			FileName:    fileName,
			Section:     section,
			ParagraphID: i + 1,
			Content:     p,
		})
	}
	return out
}

// SplitParagraphs splits section text on blank-line boundaries, trimming each
// paragraph and discarding empty ones.
func SplitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
